package server

import (
	"database/sql"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/netip"
	"strconv"
	"time"

	"github.com/ghax-org/dtoken/internal/api"
	"github.com/ghax-org/dtoken/internal/auth"
	"github.com/ghax-org/dtoken/internal/codec"
	"github.com/ghax-org/dtoken/internal/db"
	"github.com/ghax-org/dtoken/internal/logging"
	"go.uber.org/zap"
)

// APIServer handles explicit token encoding and the issued-token log.
// Unlike the request-path middleware, API callers supply fields on
// purpose, so an out-of-range field is misuse and fails the call.
type APIServer struct {
	DB     *sql.DB
	Schema codec.Schema
	Logger *zap.Logger

	// SecretHash enables bearer auth when non-nil (see auth.HashSecret).
	SecretHash []byte

	Now func() time.Time
}

func (s *APIServer) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Handler returns the HTTP handler for the API server.
func (s *APIServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/tokens", s.handleEncode)
	mux.HandleFunc("GET /v1/tokens", s.handleList)
	mux.HandleFunc("GET /healthz", s.handleHealth)

	return s.AuthMiddleware(mux)
}

// AuthMiddleware validates the bearer secret when one is configured.
// The health endpoint is always open.
func (s *APIServer) AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.SecretHash == nil || r.URL.Path == "/healthz" {
			next.ServeHTTP(w, r)
			return
		}

		secret, err := auth.ParseBearer(r.Header.Get("Authorization"))
		if err != nil || !auth.Verify(secret, s.SecretHash) {
			writeJSON(w, http.StatusUnauthorized, api.ErrorResponse{Error: "unauthorized"})
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *APIServer) handleEncode(w http.ResponseWriter, r *http.Request) {
	var req api.EncodeTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeJSON(w, http.StatusBadRequest, api.ErrorResponse{Error: "invalid request body"})
		return
	}

	rec, apiErr := s.recordFromRequest(req)
	if apiErr != nil {
		writeJSON(w, http.StatusBadRequest, *apiErr)
		return
	}

	token, err := s.Schema.Encode(rec)
	if err != nil {
		var fe *codec.FieldOverflowError
		if errors.As(err, &fe) {
			writeJSON(w, http.StatusBadRequest, api.ErrorResponse{
				Error: "field overflow", Field: fe.Field,
			})
			return
		}
		s.Logger.Error("encode token failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, api.ErrorResponse{Error: "internal error"})
		return
	}

	s.Logger.Info("token issued",
		logging.Token(token),
		logging.Method(rec.Method.String()),
		logging.Precision(rec.Precision.String()),
		logging.Source("api"))

	if s.DB != nil {
		if _, err := db.CreateToken(s.DB, tokenModel(rec, token, "api")); err != nil {
			s.Logger.Error("record token failed", logging.Token(token), zap.Error(err))
		}
	}

	writeJSON(w, http.StatusOK, api.EncodeTokenResponse{
		Token:   token,
		Version: s.Schema.Version.String(),
		Record:  recordSummary(rec),
	})
}

// recordFromRequest builds the codec record from an explicit request
// body, rejecting fields the format cannot represent.
func (s *APIServer) recordFromRequest(req api.EncodeTokenRequest) (codec.Record, *api.ErrorResponse) {
	var rec codec.Record

	if req.Method != "" {
		m, ok := codec.ParseMethod(req.Method)
		if !ok {
			return rec, &api.ErrorResponse{Error: "unknown method", Field: "method"}
		}
		rec.Method = m
	}

	switch req.Precision {
	case "", "s":
		rec.Precision = codec.Seconds
	case "us":
		rec.Precision = codec.Microseconds
	default:
		return rec, &api.ErrorResponse{Error: "precision must be s or us", Field: "precision"}
	}

	rec.Timestamp = req.Timestamp
	if rec.Timestamp == 0 {
		if rec.Precision == codec.Microseconds {
			rec.Timestamp = uint64(s.now().UnixMicro())
		} else {
			rec.Timestamp = uint64(s.now().Unix())
		}
	}

	endpoints := []struct {
		field string
		spec  *api.EndpointSpec
		dst   *codec.Endpoint
	}{
		{"client", req.Client, &rec.Client},
		{"load_balancer", req.LoadBalancer, &rec.LoadBalancer},
		{"server", req.Server, &rec.Server},
	}
	for _, e := range endpoints {
		if e.spec == nil {
			continue
		}
		addr, err := netip.ParseAddr(e.spec.Address)
		if err != nil {
			return rec, &api.ErrorResponse{Error: "invalid address literal", Field: e.field}
		}
		*e.dst = codec.Endpoint{Addr: addr, Port: e.spec.Port}
	}

	// Ids wider than uint32 cannot even reach the schema check.
	if req.ID1 > 1<<32-1 {
		return rec, &api.ErrorResponse{Error: "field overflow", Field: "id1"}
	}
	if req.ID2 > 1<<32-1 {
		return rec, &api.ErrorResponse{Error: "field overflow", Field: "id2"}
	}
	rec.ID1 = uint32(req.ID1)
	rec.ID2 = uint32(req.ID2)

	return rec, nil
}

func (s *APIServer) handleList(w http.ResponseWriter, r *http.Request) {
	if s.DB == nil {
		writeJSON(w, http.StatusOK, api.ListTokensResponse{Tokens: []api.TokenInfo{}})
		return
	}

	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 1000 {
			limit = n
		}
	}

	tokens, err := db.ListRecentTokens(s.DB, limit)
	if err != nil {
		s.Logger.Error("list tokens failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, api.ErrorResponse{Error: "internal error"})
		return
	}

	resp := api.ListTokensResponse{Tokens: make([]api.TokenInfo, 0, len(tokens))}
	for _, t := range tokens {
		resp.Tokens = append(resp.Tokens, tokenInfo(t))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *APIServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
