package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/dgallion1/chartmate/internal/blob"
	"github.com/dgallion1/chartmate/internal/docref"
	"github.com/dgallion1/chartmate/internal/status"
)

// ErrUnknownJob is returned when a client supplies a job identifier that has
// no persisted manifest.
var ErrUnknownJob = errors.New("pipeline: unknown job identifier")

// Manifest records which document references a job has already accepted.
type Manifest struct {
	Filenames []string `json:"filenames"`
}

// IntakeResult is the synchronous outcome of a submission; processing
// continues asynchronously.
type IntakeResult struct {
	JobID     string
	UpToDate  bool
	Forwarded int
}

// Intake accepts document reference sets, deduplicates them against the
// job's manifest, and forwards only newly-seen references downstream.
type Intake struct {
	blobs      blob.Store
	statuses   status.Store
	dispatcher Dispatcher
	log        *slog.Logger
}

func NewIntake(blobs blob.Store, statuses status.Store, d Dispatcher, log *slog.Logger) *Intake {
	return &Intake{
		blobs:      blobs,
		statuses:   statuses,
		dispatcher: d,
		log:        log,
	}
}

// Submit registers references for a job. With an empty jobID a new job is
// created and the full set is forwarded; with an existing jobID only the
// references missing from the manifest are appended and forwarded.
func (in *Intake) Submit(ctx context.Context, jobID string, links []string) (IntakeResult, error) {
	normalized := make([]string, 0, len(links))
	for _, l := range links {
		normalized = append(normalized, docref.Normalize(l))
	}

	if jobID == "" {
		return in.createJob(ctx, normalized)
	}
	return in.resumeJob(ctx, jobID, normalized)
}

func (in *Intake) createJob(ctx context.Context, links []string) (IntakeResult, error) {
	jobID := uuid.NewString()
	log := in.log.With("job_id", jobID)

	if err := in.statuses.Set(ctx, jobID, status.InProgress); err != nil {
		return IntakeResult{}, fmt.Errorf("set status: %w", err)
	}
	if err := in.putManifest(ctx, jobID, Manifest{Filenames: links}); err != nil {
		return IntakeResult{}, err
	}

	log.Info("job created", "links", len(links))
	in.dispatcher.InvokeAsync(StageExtract, ExtractPayload{JobID: jobID, Links: links})
	return IntakeResult{JobID: jobID, Forwarded: len(links)}, nil
}

func (in *Intake) resumeJob(ctx context.Context, jobID string, links []string) (IntakeResult, error) {
	log := in.log.With("job_id", jobID)

	manifest, err := in.getManifest(ctx, jobID)
	if err != nil {
		if errors.Is(err, blob.ErrNotFound) {
			return IntakeResult{}, ErrUnknownJob
		}
		return IntakeResult{}, err
	}

	seen := make(map[string]bool, len(manifest.Filenames))
	for _, f := range manifest.Filenames {
		seen[f] = true
	}
	var missing []string
	for _, l := range links {
		if !seen[l] {
			missing = append(missing, l)
			seen[l] = true
		}
	}

	if len(missing) == 0 {
		log.Info("all references already processed")
		return IntakeResult{JobID: jobID, UpToDate: true}, nil
	}

	manifest.Filenames = append(manifest.Filenames, missing...)
	if err := in.putManifest(ctx, jobID, manifest); err != nil {
		return IntakeResult{}, err
	}
	if err := in.statuses.Set(ctx, jobID, status.InProgress); err != nil {
		return IntakeResult{}, fmt.Errorf("set status: %w", err)
	}

	log.Info("job resumed", "new_links", len(missing))
	in.dispatcher.InvokeAsync(StageExtract, ExtractPayload{JobID: jobID, Links: missing})
	return IntakeResult{JobID: jobID, Forwarded: len(missing)}, nil
}

func (in *Intake) getManifest(ctx context.Context, jobID string) (Manifest, error) {
	data, err := in.blobs.Get(ctx, ManifestKey(jobID))
	if err != nil {
		return Manifest{}, err
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return Manifest{}, fmt.Errorf("decode manifest: %w", err)
	}
	return m, nil
}

func (in *Intake) putManifest(ctx context.Context, jobID string, m Manifest) error {
	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}
	if err := in.blobs.Put(ctx, ManifestKey(jobID), data); err != nil {
		return fmt.Errorf("put manifest: %w", err)
	}
	return nil
}
