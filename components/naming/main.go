package naming

import (
	"regexp"
	"strings"

	"github.com/iancoleman/strcase"
	"github.com/pkg/errors"
)

// MaxPrefixLength keeps "<prefix>-<suffix>" names within the 32 character limit
// of load balancers and target groups.
const MaxPrefixLength = 20

var prefixPattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9-]*$`)

// Namer derives resource names from a common prefix.
type Namer struct {
	prefix string
}

func New(prefix string) Namer {
	return Namer{prefix: prefix}
}

func (n Namer) Prefix() string {
	return n.prefix
}

// Name returns "<prefix>-<suffix>".
func (n Namer) Name(suffix string) string {
	return n.prefix + "-" + suffix
}

// Family is the task definition family and ECR repository name.
func (n Namer) Family() string {
	return strings.ToLower(n.prefix)
}

// Bucket returns an S3 safe name for prefix+suffix, e.g. "MyApp" and
// "FargateArtifacts" become "my-app-fargate-artifacts".
func (n Namer) Bucket(suffix string) string {
	return Kebab(n.prefix + suffix)
}

// Kebab converts CamelCase to lower kebab-case.
func Kebab(s string) string {
	return strcase.ToKebab(s)
}

func ValidatePrefix(prefix string) error {
	if prefix == "" {
		return errors.New("resource prefix is required")
	}
	if len(prefix) > MaxPrefixLength {
		return errors.Errorf("resource prefix %q is longer than %d characters", prefix, MaxPrefixLength)
	}
	if !prefixPattern.MatchString(prefix) {
		return errors.Errorf("resource prefix %q must start with a letter and contain only letters, digits and dashes", prefix)
	}
	return nil
}
