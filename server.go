// Copyright 2025 Certen Protocol
//
// Reference HTTP/JSON transport for the Boot Service, one POST /rpc/<Method>
// handler per entry in the platform's RPC table. Mirrors the teacher's
// pkg/server/attestation_handlers.go: explicit method check, writeJSONError
// helper, json.NewDecoder/Encoder at the handler boundary.
//
// The x-api-key admission filter and connection framing named alongside the
// RPC table are out of scope here; AuthMiddleware is the seam where that
// filter would be installed in front of the mux in production, with
// GetAppSecretKey the one method that must never ship without it.
package main

import (
	"encoding/hex"
	"encoding/json"
	"log"
	"net"
	"net/http"
	"time"

	"github.com/trustedstack/tapp-core/pkg/apperrors"
	"github.com/trustedstack/tapp-core/pkg/boot"
)

// AuthMiddleware wraps an http.Handler with a request-admission check. The
// reference server installs the identity function; production deployments
// provide an x-api-key (or equivalent) predicate here.
type AuthMiddleware func(http.Handler) http.Handler

func passthroughAuth(next http.Handler) http.Handler { return next }

// RPCServer binds pkg/boot.Service to the HTTP/JSON transport.
type RPCServer struct {
	service *boot.Service
	logger  *log.Logger
}

// NewRPCServer returns a server ready to be mounted with Handler().
func NewRPCServer(service *boot.Service, logger *log.Logger) *RPCServer {
	if logger == nil {
		logger = log.New(log.Writer(), "[RPC] ", log.LstdFlags)
	}
	return &RPCServer{service: service, logger: logger}
}

// Handler builds the mux. auth wraps every handler uniformly; pass
// passthroughAuth to leave admission control unimplemented, as the reference
// transport does.
func (s *RPCServer) Handler(auth AuthMiddleware) http.Handler {
	if auth == nil {
		auth = passthroughAuth
	}
	mux := http.NewServeMux()
	mux.Handle("/rpc/GetEvidence", auth(http.HandlerFunc(s.handleGetEvidence)))
	mux.Handle("/rpc/StartApp", auth(http.HandlerFunc(s.handleStartApp)))
	mux.Handle("/rpc/StopApp", auth(http.HandlerFunc(s.handleStopApp)))
	mux.Handle("/rpc/GetTaskStatus", auth(http.HandlerFunc(s.handleGetTaskStatus)))
	mux.Handle("/rpc/ListAppMeasurements", auth(http.HandlerFunc(s.handleListAppMeasurements)))
	mux.Handle("/rpc/GetAppKey", auth(http.HandlerFunc(s.handleGetAppKey)))
	mux.Handle("/rpc/GetAppSecretKey", auth(http.HandlerFunc(s.handleGetAppSecretKey)))
	mux.Handle("/rpc/GetAppInfo", auth(http.HandlerFunc(s.handleGetAppInfo)))
	return mux
}

func writeJSONError(w http.ResponseWriter, message string, status int) {
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"success": false,
		"message": message,
	})
}

func writeRPCError(w http.ResponseWriter, err error) {
	writeJSONError(w, apperrors.Message(err), httpStatusFor(apperrors.KindOf(err)))
}

func httpStatusFor(kind apperrors.Kind) int {
	switch kind {
	case apperrors.Validation:
		return http.StatusBadRequest
	case apperrors.PermissionDenied:
		return http.StatusForbidden
	case apperrors.NotFound:
		return http.StatusNotFound
	case apperrors.ServiceUnavailable:
		return http.StatusServiceUnavailable
	case apperrors.Config:
		return http.StatusPreconditionFailed
	default:
		return http.StatusInternalServerError
	}
}

func requireMethod(w http.ResponseWriter, r *http.Request) bool {
	w.Header().Set("Content-Type", "application/json")
	if r.Method != http.MethodPost {
		writeJSONError(w, "method not allowed", http.StatusMethodNotAllowed)
		return false
	}
	return true
}

type getEvidenceRequest struct {
	ReportData []byte `json:"report_data"`
}

func (s *RPCServer) handleGetEvidence(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r) {
		return
	}
	var req getEvidenceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	evidence, teeType, ts, err := s.service.GetEvidence(req.ReportData)
	if err != nil {
		writeRPCError(w, err)
		return
	}
	json.NewEncoder(w).Encode(map[string]interface{}{
		"success":   true,
		"message":   "ok",
		"evidence":  evidence,
		"tee_type":  teeType,
		"timestamp": ts,
	})
}

type startAppRequest struct {
	ComposeContent string           `json:"compose_content"`
	AppID          string           `json:"app_id"`
	MountFiles     []mountFilePayload `json:"mount_files"`
	Deployer       []byte           `json:"deployer"`
}

type mountFilePayload struct {
	SourcePath string `json:"source_path"`
	Content    []byte `json:"content"`
	Mode       string `json:"mode"`
}

func (s *RPCServer) handleStartApp(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r) {
		return
	}
	var req startAppRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	mountFiles := make([]boot.MountFile, len(req.MountFiles))
	for i, mf := range req.MountFiles {
		mountFiles[i] = boot.MountFile{SourcePath: mf.SourcePath, Content: mf.Content, Mode: mf.Mode}
	}
	taskID, err := s.service.StartApp(boot.StartAppRequest{
		ComposeContent: req.ComposeContent,
		AppID:          req.AppID,
		MountFiles:     mountFiles,
		Deployer:       req.Deployer,
	})
	if err != nil {
		writeRPCError(w, err)
		return
	}
	json.NewEncoder(w).Encode(map[string]interface{}{
		"success":   true,
		"message":   "deployment started",
		"task_id":   taskID,
		"timestamp": time.Now().Unix(),
	})
}

type stopAppRequest struct {
	AppID string `json:"app_id"`
}

func (s *RPCServer) handleStopApp(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r) {
		return
	}
	var req stopAppRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if err := s.service.StopApp(r.Context(), req.AppID); err != nil {
		writeRPCError(w, err)
		return
	}
	json.NewEncoder(w).Encode(map[string]interface{}{
		"success":   true,
		"message":   "app stopped",
		"timestamp": time.Now().Unix(),
	})
}

type getTaskStatusRequest struct {
	TaskID string `json:"task_id"`
}

func (s *RPCServer) handleGetTaskStatus(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r) {
		return
	}
	var req getTaskStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	t, ok := s.service.GetTaskStatus(req.TaskID)
	if !ok {
		writeJSONError(w, "unknown task_id", http.StatusNotFound)
		return
	}
	json.NewEncoder(w).Encode(map[string]interface{}{
		"success":    true,
		"message":    "ok",
		"task_id":    t.ID,
		"status":     t.Status,
		"result":     t.Result,
		"error":      t.Error,
		"created_at": t.CreatedAt,
		"updated_at": t.UpdatedAt,
	})
}

type listAppMeasurementsRequest struct {
	DeployerFilter string `json:"deployer_filter"`
}

func (s *RPCServer) handleListAppMeasurements(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r) {
		return
	}
	var req listAppMeasurementsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	measurements := s.service.ListAppMeasurements(req.DeployerFilter)
	hashAlgo := ""
	if len(measurements) > 0 {
		hashAlgo = measurements[0].HashAlgorithm
	}
	json.NewEncoder(w).Encode(map[string]interface{}{
		"success":        true,
		"message":        "ok",
		"measurements":   measurements,
		"total_count":    len(measurements),
		"hash_algorithm": hashAlgo,
	})
}

type getAppKeyRequest struct {
	AppID   string `json:"app_id"`
	KeyType string `json:"key_type"`
}

func (s *RPCServer) handleGetAppKey(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r) {
		return
	}
	var req getAppKeyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	pub, addr, source, err := s.service.GetAppKey(req.AppID, req.KeyType)
	if err != nil {
		writeRPCError(w, err)
		return
	}
	json.NewEncoder(w).Encode(map[string]interface{}{
		"success":     true,
		"message":     "ok",
		"public_key":  pub,
		"eth_address": addr,
		"key_source":  source,
	})
}

type getAppSecretKeyRequest struct {
	AppID     string `json:"app_id"`
	Nonce     string `json:"nonce"`
	Timestamp int64  `json:"timestamp"`
	Signature []byte `json:"signature"`
}

func (s *RPCServer) handleGetAppSecretKey(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r) {
		return
	}
	var req getAppSecretKeyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	priv, pub, addr, err := s.service.GetAppSecretKey(boot.GetAppSecretKeyRequest{
		AppID:      req.AppID,
		Nonce:      req.Nonce,
		Timestamp:  req.Timestamp,
		Signature:  req.Signature,
		RemoteAddr: remoteHost(r),
	})
	if err != nil {
		s.logger.Printf("GetAppSecretKey denied for app_id=%s remote=%s: %v", req.AppID, remoteHost(r), err)
		writeRPCError(w, err)
		return
	}
	json.NewEncoder(w).Encode(map[string]interface{}{
		"success":     true,
		"message":     "ok",
		"private_key": hex.EncodeToString(priv),
		"public_key":  hex.EncodeToString(pub),
		"eth_address": hex.EncodeToString(addr),
	})
}

type getAppInfoRequest struct {
	AppID string `json:"app_id"`
}

func (s *RPCServer) handleGetAppInfo(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r) {
		return
	}
	var req getAppInfoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	compose, volumes, err := s.service.GetAppInfo(req.AppID)
	if err != nil {
		writeRPCError(w, err)
		return
	}
	json.NewEncoder(w).Encode(map[string]interface{}{
		"success":         true,
		"message":         "ok",
		"app_id":          req.AppID,
		"compose_content": compose,
		"volumes_content": volumes,
	})
}

// remoteHost strips the port from r.RemoteAddr; the netorigin classifier
// only cares about the address.
func remoteHost(r *http.Request) string {
	addr := r.RemoteAddr
	if host, _, err := net.SplitHostPort(addr); err == nil {
		return host
	}
	return addr
}
