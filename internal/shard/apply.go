package shard

import (
	"github.com/cockroachdb/errors"

	"github.com/dreamware/rawkv/internal/kv"
	"github.com/dreamware/rawkv/internal/request"
)

// Execute applies a request whose keys and ranges all lie inside this
// region. Put and Update are both unconditional upserts here.
func (s *Shard) Execute(req request.Request) (request.Response, error) {
	cf := kv.ResolveCF(req.ColumnFamily())

	switch r := req.(type) {
	case *request.RawGet:
		v, found, err := s.Get(cf, r.Key)
		if err != nil {
			return nil, err
		}
		return &request.GetResponse{Value: v, Found: found}, nil

	case *request.RawBatchGet:
		pairs, err := s.BatchGet(cf, r.Keys)
		if err != nil {
			return nil, err
		}
		return &request.PairsResponse{Pairs: pairs}, nil

	case *request.RawPut:
		return empty(s.Put(cf, r.Key, r.Value))

	case *request.RawUpdate:
		return empty(s.Put(cf, r.Key, r.Value))

	case *request.RawBatchPut:
		return empty(s.BatchPut(cf, r.Pairs))

	case *request.RawBatchUpdate:
		return empty(s.BatchPut(cf, r.Pairs))

	case *request.RawDelete:
		return empty(s.Delete(cf, r.Key))

	case *request.RawBatchDelete:
		return empty(s.BatchDelete(cf, r.Keys))

	case *request.RawDeleteRange:
		start, end := r.Range.IntoKeys()
		_, err := s.DeleteRange(cf, start, end)
		return empty(err)

	case *request.RawScan:
		start, end := r.Range.IntoKeys()
		pairs, err := s.Scan(cf, start, end, r.Limit, r.KeyOnly)
		if err != nil {
			return nil, err
		}
		return &request.PairsResponse{Pairs: pairs}, nil

	case *request.RawBatchScan:
		out := make([][]kv.KvPair, 0, len(r.Ranges))
		for _, rng := range r.Ranges {
			start, end := rng.IntoKeys()
			pairs, err := s.Scan(cf, start, end, r.EachLimit, r.KeyOnly)
			if err != nil {
				return nil, err
			}
			out = append(out, pairs)
		}
		return &request.RangesResponse{Ranges: out}, nil
	}
	return nil, errors.AssertionFailedf("unhandled request %T", req)
}

func empty(err error) (request.Response, error) {
	if err != nil {
		return nil, err
	}
	return &request.EmptyResponse{}, nil
}
