package rpc

import (
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/me-foundation/m2/config"
	"github.com/me-foundation/m2/native/marketplace"
	nativecommon "github.com/me-foundation/m2/native/common"
	"github.com/me-foundation/m2/observability/metrics"
)

const jsonRPCVersion = "2.0"

// JSON-RPC error codes.
const (
	codeParseError     = -32700
	codeInvalidRequest = -32600
	codeMethodNotFound = -32601
	codeInvalidParams  = -32602
	codeServerError    = -32000
	codeUnauthorized   = -32001
	codeQuotaExceeded  = -32002
)

type request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params"`
}

type response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Result  interface{}     `json:"result,omitempty"`
	Error   *rpcError       `json:"error,omitempty"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type handlerFunc func(params json.RawMessage) (interface{}, *rpcError)

// Server exposes the settlement engine over JSON-RPC 2.0. Mutating methods
// are serialized through a mutex and, when an auth token is configured,
// require it as a bearer token. Request identities ("signers") are trusted
// from the authenticated caller.
type Server struct {
	engine    *marketplace.Engine
	authToken string
	quota     nativecommon.Quota
	log       *slog.Logger
	nowFn     func() int64

	mu sync.Mutex

	quotaMu sync.Mutex
	usage   map[string]nativecommon.QuotaNow

	methods map[string]methodSpec
}

type methodSpec struct {
	handler  handlerFunc
	mutating bool
}

// NewServer builds a server over engine with the given RPC settings.
func NewServer(engine *marketplace.Engine, cfg config.RPC, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	s := &Server{
		engine:    engine,
		authToken: cfg.AuthToken,
		quota: nativecommon.Quota{
			MaxRequestsPerEpoch: cfg.MaxRequestsPerMinute,
			EpochSeconds:        60,
		},
		log:   log,
		nowFn: func() int64 { return time.Now().Unix() },
		usage: make(map[string]nativecommon.QuotaNow),
	}
	s.methods = s.methodTable()
	return s
}

// SetNowFunc overrides the quota clock for tests.
func (s *Server) SetNowFunc(now func() int64) {
	if now != nil {
		s.nowFn = now
	}
}

// ServeHTTP implements http.Handler for single JSON-RPC requests on POST /.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	corrID := uuid.NewString()
	var req request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.write(w, response{JSONRPC: jsonRPCVersion, Error: &rpcError{Code: codeParseError, Message: "parse error"}})
		return
	}
	if req.JSONRPC != jsonRPCVersion || req.Method == "" {
		s.write(w, response{JSONRPC: jsonRPCVersion, ID: req.ID, Error: &rpcError{Code: codeInvalidRequest, Message: "invalid request"}})
		return
	}
	if rpcErr := s.checkQuota(r); rpcErr != nil {
		s.write(w, response{JSONRPC: jsonRPCVersion, ID: req.ID, Error: rpcErr})
		return
	}
	spec, ok := s.methods[req.Method]
	if !ok {
		s.write(w, response{JSONRPC: jsonRPCVersion, ID: req.ID, Error: &rpcError{Code: codeMethodNotFound, Message: "method not found"}})
		return
	}
	if spec.mutating {
		if rpcErr := s.checkAuth(r); rpcErr != nil {
			s.write(w, response{JSONRPC: jsonRPCVersion, ID: req.ID, Error: rpcErr})
			return
		}
		s.mu.Lock()
		defer s.mu.Unlock()
	}

	start := time.Now()
	result, rpcErr := spec.handler(req.Params)
	metrics.Marketplace().RPCDuration.WithLabelValues(req.Method).Observe(time.Since(start).Seconds())
	if rpcErr != nil {
		s.log.Warn("rpc request failed",
			"method", req.Method,
			"corr_id", corrID,
			"code", rpcErr.Code,
			"err", rpcErr.Message,
		)
		s.write(w, response{JSONRPC: jsonRPCVersion, ID: req.ID, Error: rpcErr})
		return
	}
	s.log.Debug("rpc request served", "method", req.Method, "corr_id", corrID)
	s.write(w, response{JSONRPC: jsonRPCVersion, ID: req.ID, Result: result})
}

func (s *Server) write(w http.ResponseWriter, resp response) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

func (s *Server) checkAuth(r *http.Request) *rpcError {
	if s.authToken == "" {
		return nil
	}
	header := r.Header.Get("Authorization")
	if !strings.HasPrefix(header, "Bearer ") || strings.TrimPrefix(header, "Bearer ") != s.authToken {
		return &rpcError{Code: codeUnauthorized, Message: "unauthorized"}
	}
	return nil
}

func (s *Server) checkQuota(r *http.Request) *rpcError {
	if s.quota.MaxRequestsPerEpoch == 0 {
		return nil
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	epoch := uint64(s.nowFn()) / uint64(s.quota.EpochSeconds)
	s.quotaMu.Lock()
	defer s.quotaMu.Unlock()
	next, err := nativecommon.CheckQuota(s.quota, epoch, s.usage[host], 1, 0)
	if err != nil {
		return &rpcError{Code: codeQuotaExceeded, Message: "request quota exceeded"}
	}
	s.usage[host] = next
	return nil
}

func errResponse(err error) *rpcError {
	return &rpcError{Code: codeServerError, Message: err.Error()}
}

func invalidParams(err error) *rpcError {
	return &rpcError{Code: codeInvalidParams, Message: err.Error()}
}
