package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/joseph-ayodele/forest-rights-tracker/internal/common"
	"github.com/joseph-ayodele/forest-rights-tracker/internal/ingest"
	"github.com/joseph-ayodele/forest-rights-tracker/internal/pipeline"
	"github.com/joseph-ayodele/forest-rights-tracker/internal/repository"
)

// ClaimsServiceName is the fully qualified gRPC service name. Messages are
// google.protobuf.Struct values carrying the same JSON shapes as the HTTP API.
const ClaimsServiceName = "fra.v1.ClaimsService"

// ClaimsServiceServer is the server API for ClaimsService.
type ClaimsServiceServer interface {
	IngestFile(context.Context, *structpb.Struct) (*structpb.Struct, error)
	IngestDirectory(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetClaim(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListClaims(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Recommend(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListRecommendations(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListSchemes(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

type claimsMethod func(ClaimsServiceServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unary(name string, call claimsMethod) grpc.MethodDesc {
	fullMethod := "/" + ClaimsServiceName + "/" + name
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(ClaimsServiceServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
			handler := func(ctx context.Context, req interface{}) (interface{}, error) {
				return call(srv.(ClaimsServiceServer), ctx, req.(*structpb.Struct))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

// ClaimsServiceDesc describes ClaimsService for grpc.Server.RegisterService.
var ClaimsServiceDesc = grpc.ServiceDesc{
	ServiceName: ClaimsServiceName,
	HandlerType: (*ClaimsServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("IngestFile", ClaimsServiceServer.IngestFile),
		unary("IngestDirectory", ClaimsServiceServer.IngestDirectory),
		unary("GetClaim", ClaimsServiceServer.GetClaim),
		unary("ListClaims", ClaimsServiceServer.ListClaims),
		unary("Recommend", ClaimsServiceServer.Recommend),
		unary("ListRecommendations", ClaimsServiceServer.ListRecommendations),
		unary("ListSchemes", ClaimsServiceServer.ListSchemes),
	},
	Metadata: "fra/v1/claims.proto",
}

func RegisterClaimsServiceServer(s grpc.ServiceRegistrar, srv ClaimsServiceServer) {
	s.RegisterService(&ClaimsServiceDesc, srv)
}

// ClaimsServiceClient calls ClaimsService over a client connection.
type ClaimsServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewClaimsServiceClient(cc grpc.ClientConnInterface) *ClaimsServiceClient {
	return &ClaimsServiceClient{cc: cc}
}

// Call invokes method with a request built from req (any JSON-marshalable value).
func (c *ClaimsServiceClient) Call(ctx context.Context, method string, req any, opts ...grpc.CallOption) (*structpb.Struct, error) {
	in, err := toStruct(req)
	if err != nil {
		return nil, err
	}
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, "/"+ClaimsServiceName+"/"+method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// ClaimsService implements ClaimsServiceServer on top of the pipeline.
type ClaimsService struct {
	proc     *pipeline.Processor
	ingestor ingest.Ingestor
	store    repository.ClaimRepository
	logger   *slog.Logger
}

func NewClaimsService(proc *pipeline.Processor, ing ingest.Ingestor, store repository.ClaimRepository, logger *slog.Logger) *ClaimsService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ClaimsService{proc: proc, ingestor: ing, store: store, logger: logger}
}

func (s *ClaimsService) IngestFile(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	path := strings.TrimSpace(stringField(req, "path"))
	if path == "" {
		s.logger.Error("ingest request missing path")
		return nil, status.Error(codes.InvalidArgument, "path is required")
	}

	s.logger.Info("starting file ingest", "path", path)
	r, err := s.ingestor.IngestPath(ctx, path)
	if err != nil {
		s.logger.Error("file ingest failed", "path", path, "error", err)
		return nil, common.ToStatus(err)
	}
	return toStruct(ingestResponse(r))
}

func (s *ClaimsService) IngestDirectory(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	root := strings.TrimSpace(stringField(req, "root_path"))
	if root == "" {
		s.logger.Error("ingest directory request missing root_path")
		return nil, status.Error(codes.InvalidArgument, "root_path is required")
	}
	skipHidden := true
	if v, ok := req.GetFields()["skip_hidden"]; ok {
		skipHidden = v.GetBoolValue()
	}

	s.logger.Info("starting directory ingest", "root", root, "skip_hidden", skipHidden)
	results, stats, err := s.ingestor.IngestDirectory(ctx, root, skipHidden)
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "ingest directory: %v", err)
	}

	items := make([]map[string]any, 0, len(results))
	for _, r := range results {
		items = append(items, ingestResponse(r))
	}
	return toStruct(map[string]any{
		"scanned":      stats.Scanned,
		"matched":      stats.Matched,
		"succeeded":    stats.Succeeded,
		"deduplicated": stats.Deduplicated,
		"failed":       stats.Failed,
		"results":      items,
	})
}

func (s *ClaimsService) GetClaim(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	id, err := claimIDField(req)
	if err != nil {
		return nil, err
	}
	c, err := s.store.GetClaim(ctx, id)
	if err != nil {
		return nil, common.ToStatus(err)
	}
	return toStruct(c)
}

func (s *ClaimsService) ListClaims(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	cq, err := common.ParseClaimQuery(stringField(req, "status"), numberField(req, "limit"), numberField(req, "offset"))
	if err != nil {
		return nil, common.ToStatus(err)
	}
	claims, err := s.store.ListClaims(ctx, repository.ClaimFilter{Status: cq.Status, Limit: cq.Limit, Offset: cq.Offset})
	if err != nil {
		return nil, common.ToStatus(err)
	}
	return toStruct(map[string]any{"claims": nonNil(claims), "count": len(claims)})
}

func (s *ClaimsService) Recommend(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	id, err := claimIDField(req)
	if err != nil {
		return nil, err
	}
	recs, err := s.proc.Recommend(ctx, id)
	if err != nil {
		return nil, common.ToStatus(err)
	}
	return toStruct(map[string]any{"claim_id": id, "recommendations": nonNil(recs)})
}

func (s *ClaimsService) ListRecommendations(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	id, err := claimIDField(req)
	if err != nil {
		return nil, err
	}
	recs, err := s.proc.History(ctx, id)
	if err != nil {
		return nil, common.ToStatus(err)
	}
	return toStruct(map[string]any{"claim_id": id, "history": nonNil(recs)})
}

func (s *ClaimsService) ListSchemes(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return toStruct(map[string]any{"schemes": s.proc.Catalog().Schemes()})
}

// NewGRPCServer builds a server with ClaimsService and the standard health
// service registered.
func NewGRPCServer(svc ClaimsServiceServer, logger *slog.Logger) (*grpc.Server, *health.Server) {
	if logger == nil {
		logger = slog.Default()
	}
	grpcServer := grpc.NewServer(grpc.ChainUnaryInterceptor(loggingInterceptor(logger)))
	RegisterClaimsServiceServer(grpcServer, svc)

	healthServer := health.NewServer()
	grpc_health_v1.RegisterHealthServer(grpcServer, healthServer)
	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
	healthServer.SetServingStatus(ClaimsServiceName, grpc_health_v1.HealthCheckResponse_SERVING)
	return grpcServer, healthServer
}

func loggingInterceptor(logger *slog.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		level := slog.LevelInfo
		if err != nil {
			level = slog.LevelWarn
		}
		logger.Log(ctx, level, "grpc request",
			"method", info.FullMethod,
			"code", status.Code(err).String(),
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return resp, err
	}
}

func ingestResponse(r ingest.IngestionResult) map[string]any {
	out := map[string]any{
		"claim_id":         r.ClaimID,
		"deduplicated":     r.Deduplicated,
		"content_hash_hex": r.HashHex,
		"file_ext":         r.FileExt,
		"source_path":      r.SourcePath,
		"error":            r.Err,
	}
	if !r.IngestedAt.IsZero() {
		out["ingested_at"] = r.IngestedAt.UTC().Format(time.RFC3339)
	}
	if len(r.Warnings) > 0 {
		out["warnings"] = r.Warnings
	}
	return out
}

func stringField(req *structpb.Struct, key string) string {
	return req.GetFields()[key].GetStringValue()
}

// numberField renders a numeric field for validation; absent fields are "".
func numberField(req *structpb.Struct, key string) string {
	v, ok := req.GetFields()[key]
	if !ok {
		return ""
	}
	if _, isNum := v.GetKind().(*structpb.Value_NumberValue); !isNum {
		return v.GetStringValue()
	}
	return strconv.FormatFloat(v.GetNumberValue(), 'f', -1, 64)
}

func claimIDField(req *structpb.Struct) (uuid.UUID, error) {
	id, err := common.ParseClaimID(stringField(req, "claim_id"))
	if err != nil {
		return uuid.Nil, common.ToStatus(err)
	}
	return id, nil
}

// toStruct converts any JSON-marshalable value into a Struct.
func toStruct(v any) (*structpb.Struct, error) {
	if s, ok := v.(*structpb.Struct); ok {
		return s, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode response: %v", err)
	}
	out := new(structpb.Struct)
	if err := protojson.Unmarshal(data, out); err != nil {
		return nil, status.Errorf(codes.Internal, "encode response: %v", err)
	}
	return out, nil
}
