package validation

import (
	"errors"
	"fmt"
	"regexp"

	"github.com/go-playground/validator/v10"

	"github.com/timagonch/bowtie-diagram/pkg/bowtie"
)

var (
	// validate is a singleton validator instance
	validate *validator.Validate

	MaxIDLength       = 64
	MaxLabelLength    = 500
	MaxTitleLength    = 200
	MaxPresentationKV = 100

	idPattern = regexp.MustCompile(`^[A-Za-z0-9_\-]+$`)
)

func init() {
	validate = validator.New()
	validate.RegisterValidation("node_kind", func(fl validator.FieldLevel) bool {
		_, err := bowtie.ParseKind(fl.Field().String())
		return err == nil
	})
	validate.RegisterValidation("node_id", func(fl validator.FieldLevel) bool {
		return idPattern.MatchString(fl.Field().String())
	})
}

// NodeRequest creates a node. Source and Target are barrier-only and name the
// nodes the new barrier sits between; AutoLink (default on) wires threats to
// the Top Event, the Top Event to consequences and barriers to the Top Event
// when no target is given.
type NodeRequest struct {
	ID            string         `json:"id,omitempty" validate:"omitempty,max=64,node_id"`
	Kind          string         `json:"kind" validate:"required,node_kind"`
	Label         string         `json:"label" validate:"max=500"`
	Severity      *int           `json:"severity,omitempty" validate:"omitempty,min=1,max=5"`
	Likelihood    *int           `json:"likelihood,omitempty" validate:"omitempty,min=1,max=5"`
	Effectiveness *int           `json:"effectiveness,omitempty" validate:"omitempty,min=0,max=100"`
	BarrierType   string         `json:"barrierType,omitempty" validate:"omitempty,oneof=preventive mitigative"`
	Source        string         `json:"source,omitempty" validate:"omitempty,max=64,node_id"`
	Target        string         `json:"target,omitempty" validate:"omitempty,max=64,node_id"`
	AutoLink      *bool          `json:"autoLink,omitempty"`
	Presentation  map[string]any `json:"presentation,omitempty" validate:"omitempty,max=100"`
}

// EdgeRequest connects two existing nodes.
type EdgeRequest struct {
	Source string `json:"source" validate:"required,max=64,node_id"`
	Target string `json:"target" validate:"required,max=64,node_id,nefield=Source"`
}

// RiskUpdateRequest edits a node in place. Only the fields present change.
type RiskUpdateRequest struct {
	Label         *string `json:"label,omitempty" validate:"omitempty,max=500"`
	Severity      *int    `json:"severity,omitempty" validate:"omitempty,min=1,max=5"`
	Likelihood    *int    `json:"likelihood,omitempty" validate:"omitempty,min=1,max=5"`
	Effectiveness *int    `json:"effectiveness,omitempty" validate:"omitempty,min=0,max=100"`
	BarrierType   *string `json:"barrierType,omitempty" validate:"omitempty,oneof=preventive mitigative"`
}

// TopEventRequest sets or replaces the Top Event.
type TopEventRequest struct {
	Label string `json:"label" validate:"required,max=500"`
}

// DiagramRequest creates a diagram, optionally seeded from a document.
type DiagramRequest struct {
	Title string `json:"title" validate:"max=200"`
}

// ValidateNodeRequest validates a node creation request
func ValidateNodeRequest(req *NodeRequest) error {
	if req == nil {
		return errors.New("node request cannot be nil")
	}

	if err := validate.Struct(req); err != nil {
		return formatValidationError(err)
	}

	kind, _ := bowtie.ParseKind(req.Kind)
	if kind != bowtie.KindBarrier {
		if req.Effectiveness != nil {
			return errors.New("Effectiveness: only barriers carry effectiveness")
		}
		if req.BarrierType != "" {
			return errors.New("BarrierType: only barriers carry a barrier type")
		}
		if req.Source != "" || req.Target != "" {
			return fmt.Errorf("Source: only barriers are placed between nodes, got kind %s", kind)
		}
	}
	if req.Source != "" && req.Source == req.Target {
		return errors.New("Target: must differ from source")
	}

	for key := range req.Presentation {
		if key == "" {
			return errors.New("Presentation: key cannot be empty")
		}
	}

	return nil
}

// ValidateEdgeRequest validates an edge creation request
func ValidateEdgeRequest(req *EdgeRequest) error {
	if req == nil {
		return errors.New("edge request cannot be nil")
	}
	if err := validate.Struct(req); err != nil {
		return formatValidationError(err)
	}
	return nil
}

// ValidateRiskUpdateRequest validates a node update request
func ValidateRiskUpdateRequest(req *RiskUpdateRequest) error {
	if req == nil {
		return errors.New("update request cannot be nil")
	}
	if err := validate.Struct(req); err != nil {
		return formatValidationError(err)
	}
	if req.Label == nil && req.Severity == nil && req.Likelihood == nil &&
		req.Effectiveness == nil && req.BarrierType == nil {
		return errors.New("update request changes nothing")
	}
	return nil
}

// ValidateTopEventRequest validates a Top Event request
func ValidateTopEventRequest(req *TopEventRequest) error {
	if req == nil {
		return errors.New("top event request cannot be nil")
	}
	if err := validate.Struct(req); err != nil {
		return formatValidationError(err)
	}
	return nil
}

// ValidateDiagramRequest validates a diagram creation request
func ValidateDiagramRequest(req *DiagramRequest) error {
	if req == nil {
		return errors.New("diagram request cannot be nil")
	}
	if err := validate.Struct(req); err != nil {
		return formatValidationError(err)
	}
	return nil
}

// formatValidationError converts validator errors to a more user-friendly format
func formatValidationError(err error) error {
	if err == nil {
		return nil
	}

	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return err
	}

	// Report the first failure only
	for _, e := range validationErrs {
		field := e.Field()
		param := e.Param()

		switch e.Tag() {
		case "required":
			return fmt.Errorf("%s: field is required", field)
		case "min":
			return fmt.Errorf("%s: must be at least %s", field, param)
		case "max":
			return fmt.Errorf("%s: must not exceed %s", field, param)
		case "oneof":
			return fmt.Errorf("%s: must be one of [%s]", field, param)
		case "nefield":
			return fmt.Errorf("%s: must differ from %s", field, param)
		case "node_kind":
			return fmt.Errorf("%s: unknown node kind %q", field, e.Value())
		case "node_id":
			return fmt.Errorf("%s: %q contains invalid characters (letters, digits, '_' and '-' allowed)", field, e.Value())
		default:
			return fmt.Errorf("%s: validation failed (%s)", field, e.Tag())
		}
	}

	return err
}
