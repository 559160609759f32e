package frametool

import (
	"reflect"
	"strconv"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"framebridge/internal/services"
)

// BatchCompressOptions configures a compress run over a directory of images.
type BatchCompressOptions struct {
	InputDir  string   `json:"inputDir" yaml:"input_dir" validate:"required"`
	OutputDir string   `json:"outputDir" yaml:"output_dir" validate:"required"`
	Recursive bool     `json:"recursive,omitempty" yaml:"recursive"`
	Quality   *int     `json:"quality,omitempty" yaml:"quality"`
	MinSize   *float64 `json:"minSize,omitempty" yaml:"min_size"`
	MaxSize   *float64 `json:"maxSize,omitempty" yaml:"max_size"`
}

// ExtractFirstFrameOptions configures first-frame extraction over a
// directory of videos.
type ExtractFirstFrameOptions struct {
	InputDir    string   `json:"inputDir" yaml:"input_dir" validate:"required"`
	OutputDir   string   `json:"outputDir" yaml:"output_dir" validate:"required"`
	Recursive   bool     `json:"recursive,omitempty" yaml:"recursive"`
	Compress    bool     `json:"compress,omitempty" yaml:"compress"`
	WebPQuality *int     `json:"webpQuality,omitempty" yaml:"webp_quality"`
	MinSize     *float64 `json:"minSize,omitempty" yaml:"min_size"`
	MaxSize     *float64 `json:"maxSize,omitempty" yaml:"max_size"`
}

var (
	validatorOnce sync.Once
	validateInst  *validator.Validate
)

func validatorInstance() *validator.Validate {
	validatorOnce.Do(func() {
		v := validator.New()
		v.RegisterTagNameFunc(func(field reflect.StructField) string {
			name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
			if name == "" || name == "-" {
				return field.Name
			}
			return name
		})
		validateInst = v
	})
	return validateInst
}

// Validate checks presence of the required directories. Ranges are left to
// the tool.
func (o BatchCompressOptions) Validate() error {
	return validateOptions("batch_compress", o)
}

// Validate checks presence of the required directories.
func (o ExtractFirstFrameOptions) Validate() error {
	return validateOptions("extract_first_frames", o)
}

func validateOptions(operation string, value any) error {
	err := validatorInstance().Struct(value)
	if err == nil {
		return nil
	}
	if ves, ok := err.(validator.ValidationErrors); ok && len(ves) > 0 {
		return services.Wrap(services.ErrValidation, "frametool", operation, ves[0].Field()+" is required", nil)
	}
	return services.Wrap(services.ErrValidation, "frametool", operation, "invalid options", err)
}

// CompressArgs maps options to the compress subcommand.
func CompressArgs(o BatchCompressOptions) []string {
	args := []string{"compress", "-i", o.InputDir, "-o", o.OutputDir}
	if o.Recursive {
		args = append(args, "-r")
	}
	if o.Quality != nil {
		args = append(args, "-q", strconv.Itoa(*o.Quality))
	}
	return appendSizeBounds(args, o.MinSize, o.MaxSize)
}

// DirFirstArgs maps options to the dirfirst subcommand.
func DirFirstArgs(o ExtractFirstFrameOptions) []string {
	args := []string{"dirfirst", "-i", o.InputDir, "-o", o.OutputDir}
	if o.Recursive {
		args = append(args, "-r")
	}
	if o.Compress {
		args = append(args, "-c")
	}
	if o.WebPQuality != nil {
		args = append(args, "--webp-quality", strconv.Itoa(*o.WebPQuality))
	}
	return appendSizeBounds(args, o.MinSize, o.MaxSize)
}

func appendSizeBounds(args []string, minSize, maxSize *float64) []string {
	if minSize != nil {
		args = append(args, "--min-size", formatNumber(*minSize))
	}
	if maxSize != nil {
		args = append(args, "--max-size", formatNumber(*maxSize))
	}
	return args
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
