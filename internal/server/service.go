package server

import (
	"context"
	"encoding/base64"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/joseph-ayodele/idcard-extractor/constants"
	"github.com/joseph-ayodele/idcard-extractor/internal/common"
	"github.com/joseph-ayodele/idcard-extractor/internal/entity"
	"github.com/joseph-ayodele/idcard-extractor/internal/export"
	"github.com/joseph-ayodele/idcard-extractor/internal/llm"
	"github.com/joseph-ayodele/idcard-extractor/internal/repository"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "idcard.v1.Extractor"

// BytesProcessor is what Extract needs from the core; *core.Processor satisfies it.
type BytesProcessor interface {
	ProcessBytes(ctx context.Context, source string, image []byte, mimeType string, doc constants.DocumentType) (*entity.ExtractionJob, error)
}

// ExtractorServer is the server API of idcard.v1.Extractor. Messages are google.protobuf.Struct.
type ExtractorServer interface {
	Extract(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	GetJob(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	ListJobs(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	ExportJobs(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
}

func unaryHandler(call func(ExtractorServer, context.Context, *structpb.Struct) (*structpb.Struct, error), method string) func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(ExtractorServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ServiceName + "/" + method}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(ExtractorServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// ExtractorServiceDesc describes idcard.v1.Extractor for grpc.ServiceRegistrar.
var ExtractorServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*ExtractorServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Extract", Handler: unaryHandler(ExtractorServer.Extract, "Extract")},
		{MethodName: "GetJob", Handler: unaryHandler(ExtractorServer.GetJob, "GetJob")},
		{MethodName: "ListJobs", Handler: unaryHandler(ExtractorServer.ListJobs, "ListJobs")},
		{MethodName: "ExportJobs", Handler: unaryHandler(ExtractorServer.ExportJobs, "ExportJobs")},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "idcard/v1/extractor.proto",
}

func RegisterExtractorServer(s grpc.ServiceRegistrar, srv ExtractorServer) {
	s.RegisterService(&ExtractorServiceDesc, srv)
}

type ExtractorService struct {
	proc     BytesProcessor
	jobsRepo repository.ExtractionJobRepository
	exporter *export.Service
	logger   *slog.Logger
}

func NewExtractorService(proc BytesProcessor, jobsRepo repository.ExtractionJobRepository, exporter *export.Service, logger *slog.Logger) *ExtractorService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ExtractorService{proc: proc, jobsRepo: jobsRepo, exporter: exporter, logger: logger}
}

// Extract accepts image_base64 or image_data_url, plus optional mime_type, document_type and
// source. A failed extraction returns the gRPC code for its kind with the job as a detail.
func (s *ExtractorService) Extract(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	fields := req.GetFields()
	mimeType := strings.TrimSpace(fields["mime_type"].GetStringValue())

	var image []byte
	switch {
	case fields["image_data_url"].GetStringValue() != "":
		b, mt, err := llm.DecodeDataURL(fields["image_data_url"].GetStringValue())
		if err != nil {
			return nil, common.InvalidArgumentError(err.Error())
		}
		image = b
		if mimeType == "" {
			mimeType = mt
		}
	case fields["image_base64"].GetStringValue() != "":
		b, err := base64.StdEncoding.DecodeString(fields["image_base64"].GetStringValue())
		if err != nil {
			return nil, common.InvalidArgumentErrorf("image_base64 is not valid base64: %v", err)
		}
		image = b
	default:
		s.logger.Error("extract request missing image")
		return nil, common.InvalidArgumentError("image_base64 or image_data_url is required")
	}

	doc := constants.KTP
	if raw := fields["document_type"].GetStringValue(); raw != "" {
		d, ok := constants.ParseDocumentType(raw)
		if !ok {
			return nil, common.InvalidArgumentErrorf("unknown document_type %q", raw)
		}
		doc = d
	}
	source := fields["source"].GetStringValue()
	if source == "" {
		source = "grpc"
	}

	job, err := s.proc.ProcessBytes(ctx, source, image, mimeType, doc)
	if err != nil {
		s.logger.Warn("grpc extract failed", "source", source, "kind", llm.KindOf(err).String(), "error", err)
		return nil, extractionStatus(err, job)
	}
	return jobStruct(job)
}

func (s *ExtractorService) GetJob(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	raw := strings.TrimSpace(req.GetFields()["id"].GetStringValue())
	v := common.NewValidator().Field("id", raw, common.Required, common.UUID)
	if err := common.ValidateAndReturnError(v); err != nil {
		return nil, err
	}
	job, err := s.jobsRepo.GetByID(ctx, uuid.MustParse(raw))
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.NotFoundError("job " + raw + " not found")
		}
		s.logger.Error("get job failed", "job_id", raw, "error", err)
		return nil, common.StatusError("get job", err)
	}
	return jobStruct(job)
}

// ListJobs accepts optional status, document_type, since (RFC 3339) and limit.
func (s *ExtractorService) ListJobs(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	filter, err := filterFrom(req)
	if err != nil {
		return nil, err
	}
	jobs, err := s.jobsRepo.List(ctx, filter)
	if err != nil {
		s.logger.Error("list jobs failed", "error", err)
		return nil, common.StatusError("list jobs", err)
	}
	items := make([]any, 0, len(jobs))
	for _, j := range jobs {
		items = append(items, jobMap(j))
	}
	out, err := structpb.NewStruct(map[string]any{"jobs": items, "count": len(jobs)})
	if err != nil {
		return nil, common.InternalErrorf("encode jobs: %v", err)
	}
	return out, nil
}

// ExportJobs returns the XLSX workbook base64 encoded under "xlsx".
func (s *ExtractorService) ExportJobs(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if s.exporter == nil {
		return nil, status.Error(codes.Unimplemented, "export is not configured")
	}
	filter, err := filterFrom(req)
	if err != nil {
		return nil, err
	}
	xlsx, err := s.exporter.ExportJobsXLSX(ctx, filter)
	if err != nil {
		s.logger.Error("export.xlsx.failed", "err", err)
		return nil, common.StatusError("export", err)
	}
	return structpb.NewStruct(map[string]any{
		"xlsx":      base64.StdEncoding.EncodeToString(xlsx),
		"file_name": export.FileName(filter.DocumentType, time.Now()),
	})
}

func filterFrom(req *structpb.Struct) (entity.JobFilter, error) {
	fields := req.GetFields()
	var f entity.JobFilter
	if st := strings.ToUpper(strings.TrimSpace(fields["status"].GetStringValue())); st != "" {
		f.Status = constants.JobStatus(st)
	}
	if raw := fields["document_type"].GetStringValue(); raw != "" {
		d, ok := constants.ParseDocumentType(raw)
		if !ok {
			return f, common.InvalidArgumentErrorf("unknown document_type %q", raw)
		}
		f.DocumentType = d
	}
	if raw := strings.TrimSpace(fields["since"].GetStringValue()); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return f, common.InvalidArgumentError("since must be RFC 3339")
		}
		f.Since = t
	}
	if v, ok := fields["limit"]; ok {
		f.Limit = int(v.GetNumberValue())
	}
	return f, nil
}

func extractionStatus(err error, job *entity.ExtractionJob) error {
	st := status.New(llm.GRPCCode(err), err.Error())
	if job == nil {
		return st.Err()
	}
	detail, derr := jobStruct(job)
	if derr != nil {
		return st.Err()
	}
	if withDetail, werr := st.WithDetails(detail); werr == nil {
		return withDetail.Err()
	}
	return st.Err()
}

func jobStruct(j *entity.ExtractionJob) (*structpb.Struct, error) {
	out, err := structpb.NewStruct(jobMap(j))
	if err != nil {
		return nil, common.InternalErrorf("encode job: %v", err)
	}
	return out, nil
}

// jobMap renders a job with structpb-compatible values only.
func jobMap(j *entity.ExtractionJob) map[string]any {
	m := map[string]any{
		"id":            j.ID.String(),
		"source":        j.SourcePath,
		"content_hash":  j.ContentHash,
		"document_type": string(j.DocumentType),
		"model":         j.Model,
		"endpoint":      j.Endpoint,
		"status":        string(j.Status),
		"started_at":    j.StartedAt.UTC().Format(time.RFC3339Nano),
	}
	if j.RequestID != "" {
		m["request_id"] = j.RequestID
	}
	if j.FinishedAt != nil {
		m["finished_at"] = j.FinishedAt.UTC().Format(time.RFC3339Nano)
	}
	if j.ElapsedMS != nil {
		m["elapsed_ms"] = float64(*j.ElapsedMS)
	}
	if j.StatusCode != nil {
		m["status_code"] = float64(*j.StatusCode)
	}
	for key, v := range map[string]*string{
		"error_kind":    j.ErrorKind,
		"error_message": j.ErrorMessage,
		"hint":          j.Hint,
		"content":       j.RawContent,
	} {
		if v != nil {
			m[key] = *v
		}
	}
	if j.Valid != nil {
		m["valid"] = *j.Valid
	}
	if len(j.Fields) > 0 {
		fields := make(map[string]any, len(j.Fields))
		for k, v := range j.Fields {
			fields[k] = v
		}
		m["fields"] = fields
	}
	return m
}
