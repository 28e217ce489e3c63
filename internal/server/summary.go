package server

import (
	"time"

	"github.com/ghax-org/dtoken/internal/api"
	"github.com/ghax-org/dtoken/internal/codec"
	"github.com/ghax-org/dtoken/internal/models"
)

func endpointText(e codec.Endpoint) *string {
	if !e.Enabled() {
		return nil
	}
	s := e.String()
	return &s
}

func idValue(id uint32) *int64 {
	if id == 0 {
		return nil
	}
	v := int64(id)
	return &v
}

func tokenModel(rec codec.Record, token, source string) *models.Token {
	return &models.Token{
		Token:     token,
		Method:    rec.Method.String(),
		Precision: rec.Precision.String(),
		Timestamp: int64(rec.Timestamp),
		Client:    endpointText(rec.Client),
		LB:        endpointText(rec.LoadBalancer),
		Server:    endpointText(rec.Server),
		ID1:       idValue(rec.ID1),
		ID2:       idValue(rec.ID2),
		Source:    source,
	}
}

func recordSummary(rec codec.Record) api.RecordSummary {
	return api.RecordSummary{
		Method:       rec.Method.String(),
		Precision:    rec.Precision.String(),
		Timestamp:    rec.Timestamp,
		Client:       endpointText(rec.Client),
		LoadBalancer: endpointText(rec.LoadBalancer),
		Server:       endpointText(rec.Server),
		ID1:          idValue(rec.ID1),
		ID2:          idValue(rec.ID2),
	}
}

func tokenInfo(t models.Token) api.TokenInfo {
	return api.TokenInfo{
		Token:        t.Token,
		Method:       t.Method,
		Precision:    t.Precision,
		Timestamp:    t.Timestamp,
		Client:       t.Client,
		LoadBalancer: t.LB,
		Server:       t.Server,
		ID1:          t.ID1,
		ID2:          t.ID2,
		Source:       t.Source,
		CreatedAt:    time.Unix(t.CreatedAt, 0).UTC().Format(time.RFC3339),
	}
}
