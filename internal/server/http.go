// Package server implements the request-context adapter and the JSON API.
package server

import (
	"database/sql"
	"net"
	"net/http"
	"net/netip"
	"strconv"
	"time"

	"github.com/ghax-org/dtoken/internal/codec"
	"github.com/ghax-org/dtoken/internal/db"
	"github.com/ghax-org/dtoken/internal/logging"
	"go.uber.org/zap"
)

// Request headers carrying the optional generic ids.
const (
	HeaderID1 = "X-Dtoken-Id1"
	HeaderID2 = "X-Dtoken-Id2"
)

// TokenIssuer mints a token for every request passing through it: client
// from the connection's remote address, load balancer from the trusted
// forwarding header, server from the local bind address, method from the
// verb, timestamp "now" in seconds. Invalid optional fields never fail the
// request; they are downgraded to absent with a warning.
type TokenIssuer struct {
	DB       *sql.DB // nil disables the issued-token log
	Schema   codec.Schema
	LBHeader string
	Logger   *zap.Logger

	// Now is the clock; nil means time.Now. Tests override it.
	Now func() time.Time
}

func (s *TokenIssuer) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// RecordFromRequest derives the token record from a live request.
func (s *TokenIssuer) RecordFromRequest(r *http.Request) codec.Record {
	rec := codec.Record{
		Timestamp: uint64(s.now().Unix()),
		Precision: codec.Seconds,
	}

	if m, ok := codec.ParseMethod(r.Method); ok {
		rec.Method = m
	} else {
		s.Logger.Warn("request method not encodable, leaving unset",
			logging.Field("method"), logging.Method(r.Method))
	}

	rec.Client = s.parseEndpoint("client", r.RemoteAddr)

	if s.LBHeader != "" {
		if v := r.Header.Get(s.LBHeader); v != "" {
			rec.LoadBalancer = s.parseEndpoint("load_balancer", v)
		}
	}

	if local, ok := r.Context().Value(http.LocalAddrContextKey).(net.Addr); ok {
		rec.Server = s.parseEndpoint("server", local.String())
	}

	rec.ID1 = s.parseID("id1", r.Header.Get(HeaderID1), s.Schema.ID1Bits)
	rec.ID2 = s.parseID("id2", r.Header.Get(HeaderID2), s.Schema.ID2Bits)

	return rec
}

// parseEndpoint accepts "addr:port" or a bare address literal. A value
// that parses as neither yields an absent endpoint and a warning.
func (s *TokenIssuer) parseEndpoint(field, raw string) codec.Endpoint {
	if ap, err := netip.ParseAddrPort(raw); err == nil {
		return codec.Endpoint{Addr: ap.Addr(), Port: ap.Port()}
	}
	if addr, err := netip.ParseAddr(raw); err == nil {
		return codec.Endpoint{Addr: addr}
	}
	s.Logger.Warn("invalid address, treating endpoint as absent",
		logging.Field(field), logging.Addr(raw))
	return codec.Endpoint{}
}

// parseID accepts a decimal id fitting the schema width; anything else is
// absent. Zero is already "absent" on the wire, so the fallback loses
// nothing the format could have carried.
func (s *TokenIssuer) parseID(field, raw string, bits uint) uint32 {
	if raw == "" {
		return 0
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id >= 1<<bits {
		s.Logger.Warn("id out of range, treating as absent",
			logging.Field(field), zap.String("value", raw))
		return 0
	}
	return uint32(id)
}

// Middleware wraps next, attaching the encoded token to every response as
// the X-Dtoken header and recording it in the issued-token log.
func (s *TokenIssuer) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := s.RecordFromRequest(r)

		token, err := s.Schema.Encode(rec)
		if err != nil {
			// Derivation downgrades every invalid optional field, so the
			// only way here is a timestamp past the seconds width.
			s.Logger.Error("encode token failed", zap.Error(err))
			next.ServeHTTP(w, r)
			return
		}

		w.Header().Set("X-Dtoken", token)

		s.Logger.Info("token issued",
			logging.Token(token),
			logging.Method(rec.Method.String()),
			logging.RemoteIP(rec.Client.Addr.String()),
			logging.Path(r.URL.Path),
			logging.Source("http"))

		if s.DB != nil {
			if _, err := db.CreateToken(s.DB, tokenModel(rec, token, "http")); err != nil {
				s.Logger.Error("record token failed", logging.Token(token), zap.Error(err))
			}
		}

		next.ServeHTTP(w, r)
	})
}

// Handler returns the standalone token endpoint: the middleware around a
// trivial body, for callers that only want the response header.
func (s *TokenIssuer) Handler() http.Handler {
	return s.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	}))
}
