package domain

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// MaxPromptLength is the maximum number of characters accepted in a prompt.
const MaxPromptLength = 1000

// AspectRatio is the shape of the image to generate.
type AspectRatio string

// Supported aspect ratios.
const (
	AspectRatioSquare    AspectRatio = "1:1"
	AspectRatioLandscape AspectRatio = "4:3"
	AspectRatioPortrait  AspectRatio = "3:4"
	AspectRatioWide      AspectRatio = "16:9"
	AspectRatioTall      AspectRatio = "9:16"
)

// AspectRatios lists every supported aspect ratio in display order.
var AspectRatios = []AspectRatio{
	AspectRatioSquare,
	AspectRatioLandscape,
	AspectRatioPortrait,
	AspectRatioWide,
	AspectRatioTall,
}

// IsValid reports whether the aspect ratio is one of the supported values.
func (a AspectRatio) IsValid() bool {
	for _, candidate := range AspectRatios {
		if a == candidate {
			return true
		}
	}
	return false
}

// Label returns a human readable description such as "16:9 (Wide)".
func (a AspectRatio) Label() string {
	switch a {
	case AspectRatioSquare:
		return "1:1 (Square)"
	case AspectRatioLandscape:
		return "4:3 (Landscape)"
	case AspectRatioPortrait:
		return "3:4 (Portrait)"
	case AspectRatioWide:
		return "16:9 (Wide)"
	case AspectRatioTall:
		return "9:16 (Tall)"
	default:
		return string(a)
	}
}

// ParseAspectRatio converts a raw string into an AspectRatio.
func ParseAspectRatio(s string) (AspectRatio, error) {
	a := AspectRatio(strings.TrimSpace(s))
	if !a.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidAspectRatio, s)
	}
	return a, nil
}

// GenerationRequest is a single image generation job as submitted by a
// caller. It is passed by value and never modified after submission.
type GenerationRequest struct {
	Prompt      string      `json:"prompt"       validate:"nonblank,max=1000"`
	AspectRatio AspectRatio `json:"aspect_ratio" validate:"required,aspect_ratio"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// Registration only fails for empty tags or nil functions.
	_ = v.RegisterValidation("nonblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	_ = v.RegisterValidation("aspect_ratio", func(fl validator.FieldLevel) bool {
		return AspectRatio(fl.Field().String()).IsValid()
	})
	return v
}

// NewGenerationRequest builds a request from raw caller input, trimming
// surrounding whitespace from the prompt, and validates it.
func NewGenerationRequest(prompt string, aspectRatio AspectRatio) (GenerationRequest, error) {
	req := GenerationRequest{
		Prompt:      strings.TrimSpace(prompt),
		AspectRatio: aspectRatio,
	}
	if err := req.Validate(); err != nil {
		return GenerationRequest{}, err
	}
	return req, nil
}

// Validate checks that the prompt is non-blank and at most MaxPromptLength
// characters, and that the aspect ratio is supported. The returned error is
// a *ValidationError wrapping ErrValidation.
func (r GenerationRequest) Validate() error {
	err := validate.Struct(r)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}

	fe := fieldErrs[0]
	switch fe.Field() {
	case "Prompt":
		if fe.Tag() == "max" {
			return &ValidationError{
				Field:   "prompt",
				Message: fmt.Sprintf("Prompt must be %d characters or less", MaxPromptLength),
			}
		}
		return &ValidationError{
			Field:   "prompt",
			Message: "Please enter a prompt to generate an image",
		}
	case "AspectRatio":
		return &ValidationError{Field: "aspect_ratio", Message: "Invalid aspect ratio"}
	default:
		return &ValidationError{Field: fe.Field(), Message: "Invalid value"}
	}
}
