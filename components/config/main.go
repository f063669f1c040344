package config

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"ecs_fargate_cicd/components/naming"
	"ecs_fargate_cicd/components/params"
)

// Lookup resolves a single configuration key, returning "" when unset.
type Lookup func(key string) string

const (
	ContainerEnvPrefix   = "CONTAINER_ENV_"
	BuildEnvPrefix       = "BUILD_ENV_"
	DockerBuildArgPrefix = "DOCKER_BUILD_ARG_"
)

type Config struct {
	ResourceName string
	AccountID    string
	Region       string
	LogLevel     string

	Ecs          params.EcsParams
	LoadBalancer params.LoadBalancerParams
	Listener     params.ListenerParams
	Pipeline     params.PipelineParams
}

// Load reads the configuration through lookup. environ is a KEY=VALUE list
// (usually os.Environ()) scanned for the prefixed map families.
func Load(lookup Lookup, environ []string) (*Config, error) {
	r := reader{lookup: lookup}

	cfg := &Config{
		ResourceName: r.str("RESOURCE_NAME", ""),
		AccountID:    r.str("ACCOUNT_ID", ""),
		Region:       r.str("REGION", ""),
		LogLevel:     r.str("LOG_LEVEL", "info"),
		Ecs: params.EcsParams{
			ContainerName:        r.str("CONTAINER_NAME", ""),
			ContainerCpu:         r.integer("CONTAINER_CPU"),
			ContainerRam:         r.integer("CONTAINER_RAM"),
			ContainerPort:        r.integer("CONTAINER_PORT"),
			Image:                r.str("CONTAINER_IMAGE", ""),
			CpuThreshold:         r.float("CPU_THRESHOLD"),
			MinCapacity:          r.integer("MIN_CAPACITY"),
			MaxCapacity:          r.integer("MAX_CAPACITY"),
			DesiredCount:         r.integer("DESIRED_COUNT"),
			HealthCheckPath:      r.str("HEALTH_CHECK_PATH", ""),
			HealthyHttpCodes:     r.ints("HEALTHY_HTTP_CODES"),
			AssignPublicIp:       r.boolean("ASSIGN_PUBLIC_IP"),
			ContainerEnvironment: prefixed(environ, ContainerEnvPrefix),
		},
		LoadBalancer: params.LoadBalancerParams{
			ProductionPort: r.integer("PRODUCTION_PORT"),
			TestPort:       r.integer("TEST_PORT"),
			DomainName:     r.str("DOMAIN_NAME", ""),
			HostedZoneName: r.str("HOSTED_ZONE_NAME", ""),
		},
		Listener: params.ListenerParams{
			RulePriority:     r.integer("RULE_PRIORITY"),
			RulePathPatterns: r.list("RULE_PATH_PATTERNS"),
			RuleHostHeaders:  r.list("RULE_HOST_HEADERS"),
		},
		Pipeline: params.PipelineParams{
			SourceBranch:           r.str("SOURCE_BRANCH", ""),
			DeploymentConfig:       r.str("DEPLOYMENT_CONFIG", ""),
			TerminationWaitMinutes: r.optionalInteger("TERMINATION_WAIT_MINUTES"),
			RequireApproval:        r.boolean("REQUIRE_APPROVAL"),
			NotificationEmail:      r.str("NOTIFICATION_EMAIL", ""),
			BuildEnvironment:       prefixed(environ, BuildEnvPrefix),
			DockerBuildArgs:        prefixed(environ, DockerBuildArgPrefix),
		},
	}
	if r.err != nil {
		return nil, r.err
	}

	if cfg.Ecs.ContainerName == "" {
		cfg.Ecs.ContainerName = strings.ToLower(cfg.ResourceName)
	}
	cfg.Ecs = cfg.Ecs.Defaults()
	cfg.LoadBalancer = cfg.LoadBalancer.Defaults()
	cfg.Pipeline = cfg.Pipeline.Defaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if err := naming.ValidatePrefix(c.ResourceName); err != nil {
		return errors.Wrap(err, "RESOURCE_NAME")
	}
	if err := c.Ecs.Validate(); err != nil {
		return errors.Wrap(err, "ecs")
	}
	if err := c.LoadBalancer.Validate(); err != nil {
		return errors.Wrap(err, "load balancer")
	}
	// the hosted zone lookup needs a concrete environment
	if c.LoadBalancer.HTTPS() && (c.AccountID == "" || c.Region == "") {
		return errors.New("DOMAIN_NAME requires ACCOUNT_ID and REGION")
	}
	if err := c.Listener.Validate(); err != nil {
		return errors.Wrap(err, "listener")
	}
	if err := c.Pipeline.Validate(); err != nil {
		return errors.Wrap(err, "pipeline")
	}
	return nil
}

// reader keeps the first parse error so Load can read every key in one pass.
type reader struct {
	lookup Lookup
	err    error
}

func (r *reader) str(key, def string) string {
	if v := strings.TrimSpace(r.lookup(key)); v != "" {
		return v
	}
	return def
}

func (r *reader) integer(key string) int {
	v := r.str(key, "")
	if v == "" {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		r.fail(errors.Wrapf(err, "parse %s", key))
	}
	return n
}

// optionalInteger returns nil when key is unset so an explicit 0 survives defaults.
func (r *reader) optionalInteger(key string) *int {
	if r.str(key, "") == "" {
		return nil
	}
	n := r.integer(key)
	return &n
}

func (r *reader) float(key string) float64 {
	v := r.str(key, "")
	if v == "" {
		return 0
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		r.fail(errors.Wrapf(err, "parse %s", key))
	}
	return f
}

func (r *reader) boolean(key string) bool {
	v := r.str(key, "")
	if v == "" {
		return false
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		r.fail(errors.Wrapf(err, "parse %s", key))
	}
	return b
}

func (r *reader) list(key string) []string {
	var out []string
	for _, item := range strings.Split(r.str(key, ""), ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func (r *reader) ints(key string) []int {
	var out []int
	for _, item := range r.list(key) {
		n, err := strconv.Atoi(item)
		if err != nil {
			r.fail(errors.Wrapf(err, "parse %s", key))
			return nil
		}
		out = append(out, n)
	}
	return out
}

func (r *reader) fail(err error) {
	if r.err == nil {
		r.err = err
	}
}

// prefixed collects KEY=VALUE entries whose key starts with prefix, keyed by
// the remainder of the key.
func prefixed(environ []string, prefix string) map[string]string {
	out := map[string]string{}
	for _, kv := range environ {
		key, value, ok := strings.Cut(kv, "=")
		if !ok || !strings.HasPrefix(key, prefix) {
			continue
		}
		if name := strings.TrimPrefix(key, prefix); name != "" {
			out[name] = value
		}
	}
	return out
}
