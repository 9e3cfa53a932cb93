package routing

import (
	"context"

	"github.com/danielgtaylor/huma/v2"
	"gorm.io/gorm"

	"github.com/iziplay/pubmed-records/pkg/convert"
	"github.com/iziplay/pubmed-records/pkg/database"
)

// Options holds what the routes serve. DB may be nil, in which case the
// manifest routes are not registered.
type Options struct {
	Stats     *convert.Stats
	DB        *gorm.DB
	JWTSecret string
}

type PlainOutput struct {
	ContentType string `header:"Content-Type"`
	Body        []byte
}

type RunStatsOutput struct {
	Body convert.Snapshot
}

type ArchiveInput struct {
	Name string `path:"name" maxLength:"255" doc:"Archive identity, e.g. pubmed25n0001"`
}

type ArchiveOutput struct {
	Body convert.ArchiveProgress
}

type ManifestStatsOutput struct {
	Body database.CachedStats
}

type ListArchivesInput struct {
	Status string `query:"status" enum:"converted,existing,failed" doc:"Filter by outcome"`
	Prefix string `query:"prefix" doc:"Filter by archive name prefix"`
	Limit  int    `query:"limit" default:"20" minimum:"1" maximum:"100" doc:"Maximum number of results"`
	Offset int    `query:"offset" default:"0" minimum:"0" doc:"Offset for pagination"`
}

type ListArchivesOutput struct {
	Body struct {
		Total   int64              `json:"total"`
		Results []database.Archive `json:"results"`
	}
}

type ListRunsInput struct {
	Limit  int `query:"limit" default:"20" minimum:"1" maximum:"100" doc:"Maximum number of results"`
	Offset int `query:"offset" default:"0" minimum:"0" doc:"Offset for pagination"`
}

type ListRunsOutput struct {
	Body struct {
		Total   int64          `json:"total"`
		Results []database.Run `json:"results"`
	}
}

var bearerAuth = []map[string][]string{{"bearerAuth": {}}}

func Setup(api huma.API, opts Options) {
	api.UseMiddleware(authMiddleware(api, opts.JWTSecret))

	huma.Register(api, huma.Operation{
		OperationID: "HealthCheck",
		Method:      "GET",
		Path:        "/healthz",
		Summary:     "Health check",
		Description: "Check if the API is running",
		Tags:        []string{"Health"},
	}, func(ctx context.Context, input *struct{}) (*PlainOutput, error) {
		return &PlainOutput{
			ContentType: "text/plain",
			Body:        []byte("OK"),
		}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "GetStatistics",
		Method:      "GET",
		Path:        "/v1/statistics",
		Summary:     "Get run statistics",
		Description: "Get the progress of the current conversion run",
		Tags:        []string{"Statistics"},
		Security:    bearerAuth,
	}, func(ctx context.Context, input *struct{}) (*RunStatsOutput, error) {
		return &RunStatsOutput{Body: opts.Stats.Snapshot()}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "GetArchive",
		Method:      "GET",
		Path:        "/v1/archives/{name}",
		Summary:     "Get archive progress",
		Description: "Get the progress of one archive of the current run",
		Tags:        []string{"Statistics"},
		Security:    bearerAuth,
	}, func(ctx context.Context, input *ArchiveInput) (*ArchiveOutput, error) {
		progress, ok := opts.Stats.Archive(input.Name)
		if !ok {
			return nil, huma.Error404NotFound("archive not found in current run")
		}
		return &ArchiveOutput{Body: progress}, nil
	})

	if opts.DB == nil {
		return
	}

	huma.Register(api, huma.Operation{
		OperationID: "GetManifestStatistics",
		Method:      "GET",
		Path:        "/v1/manifest/statistics",
		Summary:     "Get manifest statistics",
		Description: "Get statistics about all recorded runs",
		Tags:        []string{"Manifest"},
		Security:    bearerAuth,
	}, func(ctx context.Context, input *struct{}) (*ManifestStatsOutput, error) {
		stats := database.GetCachedStats()
		if stats == nil {
			go database.ComputeAndCacheStats(context.WithoutCancel(ctx), opts.DB, false)
			return nil, huma.Error503ServiceUnavailable("stats are being computed, please retry later")
		}
		return &ManifestStatsOutput{Body: *stats}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "ListArchives",
		Method:      "GET",
		Path:        "/v1/manifest/archives",
		Summary:     "List archives",
		Description: "List the recorded outcome of every archive",
		Tags:        []string{"Manifest"},
		Security:    bearerAuth,
	}, func(ctx context.Context, input *ListArchivesInput) (*ListArchivesOutput, error) {
		archives, total, err := database.ListArchives(ctx, opts.DB, input.Status, input.Prefix, input.Limit, input.Offset)
		if err != nil {
			return nil, huma.Error500InternalServerError("failed to list archives", err)
		}
		resp := &ListArchivesOutput{}
		resp.Body.Total = total
		resp.Body.Results = archives
		return resp, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "ListRuns",
		Method:      "GET",
		Path:        "/v1/manifest/runs",
		Summary:     "List runs",
		Description: "List recorded conversion runs, most recent first",
		Tags:        []string{"Manifest"},
		Security:    bearerAuth,
	}, func(ctx context.Context, input *ListRunsInput) (*ListRunsOutput, error) {
		runs, total, err := database.ListRuns(ctx, opts.DB, input.Limit, input.Offset)
		if err != nil {
			return nil, huma.Error500InternalServerError("failed to list runs", err)
		}
		resp := &ListRunsOutput{}
		resp.Body.Total = total
		resp.Body.Results = runs
		return resp, nil
	})
}
