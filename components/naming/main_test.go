package naming

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestNamer(t *testing.T) {
	n := New("MyApp")

	require.Equal(t, "MyApp", n.Prefix())
	require.Equal(t, "MyApp-cluster", n.Name("cluster"))
	require.Equal(t, "myapp", n.Family())
	require.Equal(t, "my-app-fargate-artifacts", n.Bucket("FargateArtifacts"))
}

func TestKebab(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"FargateArtifacts", "fargate-artifacts"},
		{"WordpressFargateArtifacts", "wordpress-fargate-artifacts"},
		{"already-kebab", "already-kebab"},
		{"snake_case", "snake-case"},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, Kebab(tt.in), "Kebab(%q)", tt.in)
	}
}

func TestValidatePrefix(t *testing.T) {
	require.NoError(t, ValidatePrefix("Wordpress"))
	require.NoError(t, ValidatePrefix("bg-sample-1"))

	require.ErrorContains(t, ValidatePrefix(""), "required")
	require.ErrorContains(t, ValidatePrefix("1app"), "must start with a letter")
	require.ErrorContains(t, ValidatePrefix("my_app"), "must start with a letter")
	require.ErrorContains(t, ValidatePrefix("averyveryverylongprefix"), "longer than 20")
}

func TestBucketNamesAreS3Safe(t *testing.T) {
	s3Safe := regexp.MustCompile(`^[a-z0-9-]+$`)

	rapid.Check(t, func(t *rapid.T) {
		prefix := rapid.StringMatching(`[A-Z][a-z]{1,8}([A-Z][a-z]{1,8}){0,2}`).Draw(t, "prefix")
		name := New(prefix).Bucket("FargateArtifacts")

		if !s3Safe.MatchString(name) {
			t.Fatalf("bucket name %q is not S3 safe", name)
		}
	})
}

func TestValidPrefixesFitNameLimits(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		prefix := rapid.StringMatching(`[A-Za-z][A-Za-z0-9-]{0,19}`).Draw(t, "prefix")
		if err := ValidatePrefix(prefix); err != nil {
			t.Fatalf("ValidatePrefix(%q): %v", prefix, err)
		}
		// the longest suffix used for load balancer and target group names
		if name := New(prefix).Name("deploy-tg"); len(name) > 32 {
			t.Fatalf("name %q exceeds 32 characters", name)
		}
	})
}
