package cluster

import (
	"encoding/json"

	"github.com/cockroachdb/errors"

	"github.com/dreamware/rawkv/internal/request"
)

// Envelope is the body of POST /raw on a node: one request bound for one
// region. The node creates the region replica on first use from Region.
type Envelope struct {
	Kind    string          `json:"kind"`
	Region  RegionInfo      `json:"region"`
	Request json.RawMessage `json:"request"`
}

// EncodeRequest wraps req for delivery to region.
func EncodeRequest(region RegionInfo, req request.Request) (*Envelope, error) {
	data, err := json.Marshal(req)
	if err != nil {
		return nil, errors.Wrapf(err, "encode %s", req.Kind())
	}
	return &Envelope{Kind: req.Kind().String(), Region: region, Request: data}, nil
}

// DecodeRequest unwraps the typed request carried by e.
func (e *Envelope) DecodeRequest() (request.Request, error) {
	kind, err := request.ParseKind(e.Kind)
	if err != nil {
		return nil, err
	}
	req, err := request.New(kind)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(e.Request, req); err != nil {
		return nil, errors.Wrapf(err, "decode %s", kind)
	}
	return req, nil
}

// DecodeResponse decodes the body a node returned for a request of kind.
func DecodeResponse(kind request.Kind, data []byte) (request.Response, error) {
	resp, err := request.NewResponse(kind)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return resp, nil
	}
	if err := json.Unmarshal(data, resp); err != nil {
		return nil, errors.Wrapf(err, "decode %s response", kind)
	}
	return resp, nil
}
