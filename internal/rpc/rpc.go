// Package rpc implements the daemon's JSON-RPC 2.0 method catalog: the
// envelope validation shared by every method, and the dispatch table that
// forwards upsert/log calls to the storage engine and structured logger.
package rpc

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/clankers-daemon/clankers/internal/apperr"
	"github.com/clankers-daemon/clankers/internal/logging"
	"github.com/clankers-daemon/clankers/internal/paths"
	"github.com/clankers-daemon/clankers/internal/storage"
	"github.com/sourcegraph/jsonrpc2"
)

const version = "0.1.0"

// supportedSchemaVersion is the only schemaVersion this dispatcher accepts.
// Unknown versions are rejected with InvalidParams rather than guessed at.
const supportedSchemaVersion = "v1"

type ClientInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

type RequestEnvelope struct {
	SchemaVersion string     `json:"schemaVersion"`
	Client        ClientInfo `json:"client"`
}

type HealthResult struct {
	OK      bool   `json:"ok"`
	Version string `json:"version"`
}

type EnsureDbResult struct {
	DbPath  string `json:"dbPath"`
	Created bool   `json:"created"`
}

type GetDbPathResult struct {
	DbPath string `json:"dbPath"`
}

type OkResult struct {
	OK bool `json:"ok"`
}

type UpsertSessionParams struct {
	RequestEnvelope
	Session storage.Session `json:"session"`
}

type UpsertMessageParams struct {
	RequestEnvelope
	Message storage.Message `json:"message"`
}

type UpsertToolParams struct {
	RequestEnvelope
	Tool storage.Tool `json:"tool"`
}

type UpsertSessionErrorParams struct {
	RequestEnvelope
	SessionError storage.SessionError `json:"sessionError"`
}

type UpsertCompactionEventParams struct {
	RequestEnvelope
	CompactionEvent storage.CompactionEvent `json:"compactionEvent"`
}

type LogWriteParams struct {
	RequestEnvelope
	Entry logging.LogEntry `json:"entry"`
}

type Handler struct {
	store  *storage.Store
	logger *logging.Logger
}

func NewHandler(store *storage.Store, logger *logging.Logger) *Handler {
	return &Handler{store: store, logger: logger}
}

func (h *Handler) Handle(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request) {
	var result any
	var err error

	switch req.Method {
	case "health":
		result = h.health()
	case "ensureDb":
		result, err = h.ensureDb()
	case "getDbPath":
		result = h.getDbPath()
	case "upsertSession":
		result, err = h.upsertSession(req.Params)
	case "upsertMessage":
		result, err = h.upsertMessage(req.Params)
	case "upsertTool":
		result, err = h.upsertTool(req.Params)
	case "upsertSessionError":
		result, err = h.upsertSessionError(req.Params)
	case "upsertCompactionEvent":
		result, err = h.upsertCompactionEvent(req.Params)
	case "log.write":
		result, err = h.logWrite(req.Params)
	default:
		err = withKind(&jsonrpc2.Error{
			Code:    jsonrpc2.CodeMethodNotFound,
			Message: "method not found: " + req.Method,
		}, apperr.MethodNotFound)
	}

	if err != nil {
		conn.ReplyWithError(ctx, req.ID, toRPCError(err))
		return
	}

	conn.Reply(ctx, req.ID, result)
}

// toRPCError normalizes any error returned by a handler into a
// *jsonrpc2.Error. apperr.Error values are mapped onto the closest JSON-RPC
// code and carry their Kind in the Data field so clients can match on it
// without parsing the message text.
func toRPCError(err error) *jsonrpc2.Error {
	var rpcErr *jsonrpc2.Error
	if errors.As(err, &rpcErr) {
		if rpcErr.Data == nil {
			if ae, ok := apperr.As(err); ok {
				rpcErr.Data = kindData(ae.Kind)
			}
		}
		return rpcErr
	}

	code := int64(jsonrpc2.CodeInternalError)
	kind := apperr.InternalError
	if ae, ok := apperr.As(err); ok {
		kind = ae.Kind
		switch ae.Kind {
		case apperr.QueryNotAllowed, apperr.InvalidValue, apperr.InvalidParams:
			code = jsonrpc2.CodeInvalidParams
		}
	}

	return &jsonrpc2.Error{
		Code:    code,
		Message: err.Error(),
		Data:    kindData(kind),
	}
}

func kindData(kind apperr.Kind) *json.RawMessage {
	raw := json.RawMessage(`{"kind": "` + string(kind) + `"}`)
	return &raw
}

// withKind attaches a kind to a *jsonrpc2.Error's Data field in place, used
// for the small set of errors constructed directly in this package rather
// than threaded through apperr.
func withKind(err *jsonrpc2.Error, kind apperr.Kind) *jsonrpc2.Error {
	err.Data = kindData(kind)
	return err
}

func fieldError(message string, field string) error {
	data := json.RawMessage(`{"kind": "` + string(apperr.InvalidParams) + `", "field": "` + field + `"}`)
	return &jsonrpc2.Error{
		Code:    jsonrpc2.CodeInvalidParams,
		Message: message,
		Data:    &data,
	}
}

func missingParamsError() error {
	return withKind(&jsonrpc2.Error{
		Code:    jsonrpc2.CodeInvalidParams,
		Message: "missing params",
	}, apperr.InvalidParams)
}

// decodeEnvelope unmarshals params into dst and checks the schemaVersion of
// the embedded RequestEnvelope. Callers pass a pointer to a struct
// embedding RequestEnvelope.
func decodeEnvelope(params *json.RawMessage, dst interface{}, envelope *RequestEnvelope) error {
	if params == nil {
		return missingParamsError()
	}
	if err := json.Unmarshal(*params, dst); err != nil {
		return withKind(&jsonrpc2.Error{
			Code:    jsonrpc2.CodeInvalidParams,
			Message: "invalid params: " + err.Error(),
		}, apperr.InvalidParams)
	}
	if envelope.SchemaVersion != supportedSchemaVersion {
		return fieldError("unsupported schemaVersion: "+envelope.SchemaVersion, "schemaVersion")
	}
	return nil
}

func (h *Handler) health() *HealthResult {
	return &HealthResult{OK: true, Version: version}
}

func (h *Handler) ensureDb() (*EnsureDbResult, error) {
	dbPath := paths.GetDbPath()
	created, err := storage.EnsureDb(dbPath)
	if err != nil {
		return nil, err
	}
	return &EnsureDbResult{DbPath: dbPath, Created: created}, nil
}

func (h *Handler) getDbPath() *GetDbPathResult {
	return &GetDbPathResult{DbPath: paths.GetDbPath()}
}

func (h *Handler) upsertSession(params *json.RawMessage) (*OkResult, error) {
	var p UpsertSessionParams
	if err := decodeEnvelope(params, &p, &p.RequestEnvelope); err != nil {
		return nil, err
	}

	if p.Session.ID == "" {
		return nil, fieldError("invalid session payload", "id")
	}

	if err := h.store.UpsertSession(&p.Session); err != nil {
		return nil, err
	}

	return &OkResult{OK: true}, nil
}

func (h *Handler) upsertMessage(params *json.RawMessage) (*OkResult, error) {
	var p UpsertMessageParams
	if err := decodeEnvelope(params, &p, &p.RequestEnvelope); err != nil {
		return nil, err
	}

	if p.Message.ID == "" {
		return nil, fieldError("invalid message payload", "id")
	}
	if p.Message.SessionID == "" {
		return nil, fieldError("invalid message payload", "sessionId")
	}

	if err := h.store.UpsertMessage(&p.Message); err != nil {
		return nil, err
	}

	return &OkResult{OK: true}, nil
}

func (h *Handler) upsertTool(params *json.RawMessage) (*OkResult, error) {
	var p UpsertToolParams
	if err := decodeEnvelope(params, &p, &p.RequestEnvelope); err != nil {
		return nil, err
	}

	if p.Tool.ID == "" {
		return nil, fieldError("invalid tool payload", "id")
	}
	if p.Tool.SessionID == "" {
		return nil, fieldError("invalid tool payload", "sessionId")
	}
	if p.Tool.ToolName == "" {
		return nil, fieldError("invalid tool payload", "toolName")
	}

	if err := h.store.UpsertTool(&p.Tool); err != nil {
		return nil, err
	}

	return &OkResult{OK: true}, nil
}

func (h *Handler) upsertSessionError(params *json.RawMessage) (*OkResult, error) {
	var p UpsertSessionErrorParams
	if err := decodeEnvelope(params, &p, &p.RequestEnvelope); err != nil {
		return nil, err
	}

	if p.SessionError.ID == "" {
		return nil, fieldError("invalid session error payload", "id")
	}
	if p.SessionError.SessionID == "" {
		return nil, fieldError("invalid session error payload", "sessionId")
	}

	if err := h.store.UpsertSessionError(&p.SessionError); err != nil {
		return nil, err
	}

	return &OkResult{OK: true}, nil
}

func (h *Handler) upsertCompactionEvent(params *json.RawMessage) (*OkResult, error) {
	var p UpsertCompactionEventParams
	if err := decodeEnvelope(params, &p, &p.RequestEnvelope); err != nil {
		return nil, err
	}

	if p.CompactionEvent.ID == "" {
		return nil, fieldError("invalid compaction event payload", "id")
	}
	if p.CompactionEvent.SessionID == "" {
		return nil, fieldError("invalid compaction event payload", "sessionId")
	}

	if err := h.store.UpsertCompactionEvent(&p.CompactionEvent); err != nil {
		return nil, err
	}

	return &OkResult{OK: true}, nil
}

func (h *Handler) logWrite(params *json.RawMessage) (*OkResult, error) {
	var p LogWriteParams
	if err := decodeEnvelope(params, &p, &p.RequestEnvelope); err != nil {
		return nil, err
	}

	// Set component from client name if not already set
	if p.Entry.Component == "" {
		p.Entry.Component = p.Client.Name
	}

	// Write to log (filtering happens inside logger)
	if err := h.logger.Write(p.Entry); err != nil {
		return nil, err
	}

	return &OkResult{OK: true}, nil
}
