package sources

import (
	"path/filepath"
	"sort"
	"strings"

	"github.com/logflow/procmine/pkg/errors"
)

// Expand turns arguments into source locations. Local glob patterns are
// expanded and sorted; remote URIs and plain paths pass through unchanged.
// A pattern that matches nothing is an error.
func Expand(args []string) ([]string, error) {
	var out []string
	for _, arg := range args {
		if strings.Contains(arg, "://") || arg == "-" || !strings.ContainsAny(arg, "*?[") {
			out = append(out, arg)
			continue
		}

		matches, err := filepath.Glob(arg)
		if err != nil {
			return nil, errors.Wrap(err, errors.CodeInvalidFormat, "invalid glob pattern").WithContext("pattern", arg)
		}
		if len(matches) == 0 {
			return nil, errors.New(errors.CodeFileNotFound, "no files match pattern").WithContext("pattern", arg)
		}
		sort.Strings(matches)
		out = append(out, matches...)
	}
	return out, nil
}
