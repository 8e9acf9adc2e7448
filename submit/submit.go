package submit

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/samber/lo"

	"github.com/byte4ever/hfjobs/jobs"
)

// DefaultFlavor is the hardware flavor used when none is given.
const DefaultFlavor = "cpu-basic"

//nolint:gochecknoglobals // fixed unit table
var unitSeconds = map[byte]float64{
	's': 1,
	'm': 60,
	'h': 3600,
	'd': 24 * 3600,
}

//nolint:gochecknoglobals // fixed prefix list
var spacePrefixes = []string{
	"https://huggingface.co/spaces/",
	"https://hf.co/spaces/",
	"huggingface.co/spaces/",
	"hf.co/spaces/",
}

// Options is the parsed command line of a run.
type Options struct {
	// Image is a Docker image reference or a Space URL.
	Image string
	// Command is the command to run and its arguments.
	Command []string
	// Env holds the job environment.
	Env map[string]string
	// Flavor is the hardware flavor. Empty means
	// DefaultFlavor.
	Flavor string
	// Timeout is the maximum duration of the job in
	// seconds. Zero means no limit.
	Timeout int
}

// ParseTimeout converts a duration such as "90", "1.5m", "2h" or
// "1d" to whole seconds. Values with a unit may be fractional and
// are truncated. An empty value means no timeout and yields 0.
func ParseTimeout(value string) (int, error) {
	const errCtx = "parsing timeout"

	value = strings.TrimSpace(value)
	if value == "" {
		return 0, nil
	}

	factor, hasUnit := unitSeconds[value[len(value)-1]]
	if !hasUnit {
		secs, err := strconv.Atoi(value)
		if err != nil {
			return 0, fmt.Errorf(
				"%s: %q: %w", errCtx, value, err,
			)
		}

		if secs < 0 {
			return 0, fmt.Errorf(
				"%s: %q must not be negative", errCtx, value,
			)
		}

		return secs, nil
	}

	num, err := strconv.ParseFloat(value[:len(value)-1], 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %q: %w", errCtx, value, err)
	}

	secs := num * factor
	if secs < 0 || math.IsNaN(secs) || secs > math.MaxInt32 {
		return 0, fmt.Errorf(
			"%s: %q is out of range", errCtx, value,
		)
	}

	return int(secs), nil
}

// ParseEnv builds the job environment. Each value is a dotenv
// line such as "KEY=value"; later values override earlier ones.
// A bare "KEY" is rejected; use "KEY=" for an empty value.
// Entries of envFile, when set, override all values.
func ParseEnv(values []string, envFile string) (map[string]string, error) {
	const errCtx = "parsing environment"

	env := make(map[string]string)

	for _, v := range values {
		// A bare KEY has no value to send: the environment
		// only carries strings.
		if !strings.ContainsAny(v, "=:") {
			return nil, fmt.Errorf(
				"%s: %q is not KEY=VALUE", errCtx, v,
			)
		}

		parsed, err := godotenv.Unmarshal(v)
		if err != nil {
			return nil, fmt.Errorf(
				"%s: %q: %w", errCtx, v, err,
			)
		}

		if len(parsed) == 0 {
			return nil, fmt.Errorf(
				"%s: %q is not KEY=VALUE", errCtx, v,
			)
		}

		env = lo.Assign(env, parsed)
	}

	if envFile == "" {
		return env, nil
	}

	parsed, err := godotenv.Read(envFile)
	if err != nil {
		return nil, fmt.Errorf(
			"%s: read %s: %w", errCtx, envFile, err,
		)
	}

	return lo.Assign(env, parsed), nil
}

// SpaceID returns the Space ID referenced by image, if any.
func SpaceID(image string) (string, bool) {
	for _, prefix := range spacePrefixes {
		if id, ok := strings.CutPrefix(image, prefix); ok {
			return id, true
		}
	}

	return "", false
}

// BuildRequest returns the submission body for opts. An empty
// command runs the image entrypoint.
func BuildRequest(opts Options) (jobs.SubmitRequest, error) {
	const errCtx = "building job request"

	if opts.Image == "" {
		return jobs.SubmitRequest{}, fmt.Errorf(
			"%s: image must be set", errCtx,
		)
	}

	sr := jobs.SubmitRequest{
		Command:     opts.Command,
		Arguments:   []string{},
		Environment: opts.Env,
		Flavor:      opts.Flavor,
		Timeout:     opts.Timeout,
	}

	if sr.Command == nil {
		sr.Command = []string{}
	}

	if sr.Environment == nil {
		sr.Environment = map[string]string{}
	}

	if sr.Flavor == "" {
		sr.Flavor = DefaultFlavor
	}

	if id, ok := SpaceID(opts.Image); ok {
		sr.SpaceID = id
	} else {
		sr.DockerImage = opts.Image
	}

	return sr, nil
}
