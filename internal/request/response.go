package request

import (
	"github.com/cockroachdb/errors"

	"github.com/dreamware/rawkv/internal/kv"
)

// Response is the raw completion value of an executed Request.
type Response interface {
	isResponse()
}

// GetResponse answers RawGet. Found is false when the key is absent.
type GetResponse struct {
	Value kv.Value `json:"value,omitempty"`
	Found bool     `json:"found"`
}

// PairsResponse answers RawBatchGet and RawScan.
type PairsResponse struct {
	Pairs []kv.KvPair `json:"pairs"`
}

// RangesResponse answers RawBatchScan with one bucket per requested range,
// in request order.
type RangesResponse struct {
	Ranges [][]kv.KvPair `json:"ranges"`
}

// EmptyResponse answers every write.
type EmptyResponse struct{}

func (*GetResponse) isResponse()    {}
func (*PairsResponse) isResponse()  {}
func (*RangesResponse) isResponse() {}
func (*EmptyResponse) isResponse()  {}

// NewResponse returns an empty response of the type that answers kind.
func NewResponse(kind Kind) (Response, error) {
	switch kind {
	case KindGet:
		return &GetResponse{}, nil
	case KindBatchGet, KindScan:
		return &PairsResponse{}, nil
	case KindBatchScan:
		return &RangesResponse{}, nil
	case KindPut, KindBatchPut, KindUpdate, KindBatchUpdate,
		KindDelete, KindBatchDelete, KindDeleteRange:
		return &EmptyResponse{}, nil
	}
	return nil, errors.Newf("unhandled request kind %s", kind)
}
