package stage

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/joseph-ayodele/filings-tracker/constants"
	"github.com/joseph-ayodele/filings-tracker/internal/common"
	"github.com/joseph-ayodele/filings-tracker/internal/entity"
)

// ExtractMethod is the full gRPC method name served by stage services. Both
// request and response are google.protobuf.Struct values carrying the same
// JSON shapes as the HTTP endpoints.
const ExtractMethod = "/filings.stage.v1.StageService/Extract"

// GRPCClient calls stage services over a shared gRPC connection.
type GRPCClient struct {
	conn    grpc.ClientConnInterface
	timeout time.Duration
	schemas schemaCache
	logger  *slog.Logger
}

func NewGRPCClient(conn grpc.ClientConnInterface, timeout time.Duration, logger *slog.Logger) *GRPCClient {
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &GRPCClient{conn: conn, timeout: timeout, logger: logger}
}

// Extract implements Client.
func (c *GRPCClient) Extract(ctx context.Context, req Request) (entity.StageResult, error) {
	ep, ok := constants.EndpointFor(req.Stage)
	if !ok {
		return entity.StageResult{}, fmt.Errorf("%w: unknown stage %q", common.ErrInvalidInput, req.Stage)
	}
	schema, err := c.schemas.get(req.Stage, ep.ValueKey)
	if err != nil {
		return entity.StageResult{}, fmt.Errorf("%w: %v", common.ErrInternal, err)
	}

	names := make([]any, len(req.FileNames))
	for i, n := range req.FileNames {
		names[i] = n
	}
	in, err := structpb.NewStruct(map[string]any{
		"stage":     string(req.Stage),
		"sessionId": req.SessionID,
		"fileNames": names,
	})
	if err != nil {
		return entity.StageResult{}, fmt.Errorf("%w: build request: %v", common.ErrInternal, err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	out := new(structpb.Struct)
	if err := c.conn.Invoke(ctx, ExtractMethod, in, out); err != nil {
		c.logger.Error("stage.grpc.invoke_error", "stage", req.Stage, "error", err, "elapsed_ms", time.Since(start).Milliseconds())
		return entity.StageResult{}, fmt.Errorf("%s: %w", req.Stage, common.FromGRPCStatus(err))
	}

	raw, err := protojson.Marshal(out)
	if err != nil {
		return entity.StageResult{}, fmt.Errorf("%w: %s: %v", common.ErrMalformedResponse, req.Stage, err)
	}
	res, err := ParseResults(req, ep.ValueKey, schema, raw)
	if err != nil {
		c.logger.Error("stage.grpc.decode_error", "stage", req.Stage, "error", err)
		return entity.StageResult{}, err
	}
	c.logger.Info("stage.grpc.ok",
		"stage", req.Stage,
		"requested", len(req.FileNames),
		"answered", len(res.Values),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return res, nil
}
