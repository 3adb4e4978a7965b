package fs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"binstudy/domain/experiment"
	"binstudy/internal"
	apperrors "binstudy/internal/errors"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// assignmentSchema is the shape contract for the externally produced
// assignment log. The record comes from a separate session outside this
// process's control, so every field is schema-checked before being trusted.
const assignmentSchema = `{
	"$schema": "https://json-schema.org/draft/2020-12/schema",
	"type": "object",
	"required": ["data_dep_first", "groups", "challenge_order"],
	"properties": {
		"data_dep_first": {"type": "boolean"},
		"groups": {
			"type": "object",
			"required": ["proximity", "data_dep"],
			"properties": {
				"proximity": {"type": "string", "pattern": "^[A-Z]$"},
				"data_dep": {"type": "string", "pattern": "^[A-Z]$"}
			}
		},
		"challenge_order": {
			"type": "array",
			"items": {"type": "integer", "minimum": 0},
			"minItems": 1
		}
	}
}`

// assignmentRecord mirrors the external log's JSON layout.
type assignmentRecord struct {
	DataDepFirst   bool              `json:"data_dep_first"`
	Groups         map[string]string `json:"groups"`
	ChallengeOrder []int             `json:"challenge_order"`
}

// AssignmentSource poll-waits for the external assignment log to appear and
// maps it into a domain Assignment. The wait is bounded by the caller's
// context; run it off the experiment-owning goroutine.
type AssignmentSource struct {
	path     string
	interval time.Duration
	params   experiment.Params
	schema   *jsonschema.Schema
	logger   *internal.Logger
}

// NewAssignmentSource creates a watcher for path, polling at interval.
func NewAssignmentSource(path string, interval time.Duration, params experiment.Params, logger *internal.Logger) (*AssignmentSource, error) {
	schema, err := jsonschema.CompileString("assignment.schema.json", assignmentSchema)
	if err != nil {
		return nil, fmt.Errorf("compile assignment schema: %w", err)
	}
	if interval <= 0 {
		interval = time.Second
	}
	if logger == nil {
		logger = internal.NewDefaultLogger()
	}
	return &AssignmentSource{
		path:     path,
		interval: interval,
		params:   params,
		schema:   schema,
		logger:   logger.Named("assignment-source"),
	}, nil
}

// Wait blocks until the log exists and parses, or ctx is done. A present
// but invalid log is a hard error: the record was produced by another
// session and retrying will not fix its shape.
func (s *AssignmentSource) Wait(ctx context.Context) (*experiment.Assignment, error) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		data, err := os.ReadFile(s.path)
		switch {
		case err == nil:
			return s.parse(data)
		case errors.Is(err, os.ErrNotExist):
			s.logger.Debug("assignment log %s not present yet", s.path)
		default:
			return nil, fmt.Errorf("read assignment log: %w", err)
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("waiting for assignment log %s: %w", s.path, ctx.Err())
		case <-ticker.C:
		}
	}
}

func (s *AssignmentSource) parse(data []byte) (*experiment.Assignment, error) {
	var payload interface{}
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, apperrors.Wrap(apperrors.AssignmentInvalid(err.Error()), "assignment log is not JSON")
	}
	if err := s.schema.Validate(payload); err != nil {
		return nil, apperrors.Wrap(apperrors.AssignmentInvalid(err.Error()), "assignment log failed shape validation")
	}

	var record assignmentRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, apperrors.Wrap(err, "decode assignment log")
	}

	first := int(experiment.StudyProximity)
	if record.DataDepFirst {
		first = int(experiment.StudyDataDep)
	}

	groups := make([]experiment.Group, 0, s.params.StudyCount)
	for _, studyType := range experiment.StudyTypes() {
		letter, ok := record.Groups[studyType.String()]
		if !ok || len(letter) != 1 {
			return nil, apperrors.AssignmentInvalid(fmt.Sprintf("missing group for study %s", studyType))
		}
		group, err := experiment.NewGroup(s.params, studyType, letter[0])
		if err != nil {
			return nil, apperrors.Wrap(err, "assignment log group rejected")
		}
		groups = append(groups, group)
	}

	assignment := &experiment.Assignment{
		FirstStudy:     first,
		Groups:         groups,
		ChallengeOrder: record.ChallengeOrder,
	}
	if err := assignment.Validate(s.params); err != nil {
		return nil, apperrors.Wrap(err, "assignment log rejected")
	}

	s.logger.Info("external assignment loaded from %s", s.path)
	return assignment, nil
}
