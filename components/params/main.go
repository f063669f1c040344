package params

import (
	"sort"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// EcsParams describes the deployed container and the service running it.
type EcsParams struct {
	ContainerName        string
	ContainerCpu         int
	ContainerRam         int
	ContainerPort        int
	ContainerEnvironment map[string]string
	// Image only bootstraps the service; the pipeline replaces it on the first deployment.
	Image            string
	CpuThreshold     float64
	MinCapacity      int
	MaxCapacity      int
	DesiredCount     int
	HealthCheckPath  string
	HealthyHttpCodes []int
	AssignPublicIp   bool
}

// LoadBalancerParams configures the production and test listeners.
type LoadBalancerParams struct {
	ProductionPort int
	TestPort       int
	// DomainName switches both listeners to HTTPS.
	DomainName     string
	HostedZoneName string
}

// ListenerParams configures how target groups are attached to the listeners.
// Without a condition the target groups become the listeners' default action.
type ListenerParams struct {
	RulePriority     int
	RulePathPatterns []string
	RuleHostHeaders  []string
}

type PipelineParams struct {
	SourceBranch           string
	BuildEnvironment       map[string]string
	DockerBuildArgs        map[string]string
	DeploymentConfig       string
	// TerminationWaitMinutes is nil when unset; 0 terminates the blue tasks
	// right after traffic is rerouted.
	TerminationWaitMinutes *int
	RequireApproval        bool
	NotificationEmail      string
}

const (
	DefaultImage            = "nginx:latest"
	DefaultSourceBranch     = "master"
	DefaultDeploymentConfig = "ALL_AT_ONCE"

	DefaultTerminationWaitMinutes = 5
)

// DeploymentConfigs lists the supported CodeDeploy ECS deployment configurations.
var DeploymentConfigs = []string{
	"ALL_AT_ONCE",
	"LINEAR_10PERCENT_EVERY_1MINUTES",
	"LINEAR_10PERCENT_EVERY_3MINUTES",
	"CANARY_10PERCENT_5MINUTES",
	"CANARY_10PERCENT_15MINUTES",
}

func (p EcsParams) Defaults() EcsParams {
	if p.ContainerCpu == 0 {
		p.ContainerCpu = 256
	}
	if p.ContainerRam == 0 {
		p.ContainerRam = 512
	}
	if p.ContainerPort == 0 {
		p.ContainerPort = 80
	}
	if p.Image == "" {
		p.Image = DefaultImage
	}
	if p.CpuThreshold == 0 {
		p.CpuThreshold = 50
	}
	if p.MinCapacity == 0 {
		p.MinCapacity = 1
	}
	if p.MaxCapacity == 0 {
		p.MaxCapacity = 5
	}
	if p.DesiredCount == 0 {
		p.DesiredCount = p.MinCapacity
	}
	if p.HealthCheckPath == "" {
		p.HealthCheckPath = "/"
	}
	if len(p.HealthyHttpCodes) == 0 {
		p.HealthyHttpCodes = []int{200}
	}
	if p.ContainerEnvironment == nil {
		p.ContainerEnvironment = map[string]string{}
	}
	return p
}

func (p EcsParams) Validate() error {
	if strings.TrimSpace(p.ContainerName) == "" {
		return errors.New("container name is required")
	}
	if err := validateFargateSize(p.ContainerCpu, p.ContainerRam); err != nil {
		return err
	}
	if err := validatePort("container port", p.ContainerPort); err != nil {
		return err
	}
	if p.CpuThreshold <= 0 || p.CpuThreshold > 100 {
		return errors.Errorf("cpu threshold %v is outside 1..100", p.CpuThreshold)
	}
	if p.MinCapacity < 1 {
		return errors.Errorf("min capacity %d must be at least 1", p.MinCapacity)
	}
	if p.MinCapacity > p.MaxCapacity {
		return errors.Errorf("min capacity %d exceeds max capacity %d", p.MinCapacity, p.MaxCapacity)
	}
	if p.DesiredCount < p.MinCapacity || p.DesiredCount > p.MaxCapacity {
		return errors.Errorf("desired count %d is outside %d..%d", p.DesiredCount, p.MinCapacity, p.MaxCapacity)
	}
	if !strings.HasPrefix(p.HealthCheckPath, "/") {
		return errors.Errorf("health check path %q must start with /", p.HealthCheckPath)
	}
	for _, code := range p.HealthyHttpCodes {
		if code < 200 || code > 499 {
			return errors.Errorf("healthy http code %d is outside 200..499", code)
		}
	}
	return nil
}

// HealthyHttpCodesString returns the target group matcher value, e.g. "200,301".
func (p EcsParams) HealthyHttpCodesString() string {
	if len(p.HealthyHttpCodes) == 0 {
		return "200"
	}
	codes := make([]string, 0, len(p.HealthyHttpCodes))
	for _, code := range p.HealthyHttpCodes {
		codes = append(codes, strconv.Itoa(code))
	}
	return strings.Join(codes, ",")
}

func (p LoadBalancerParams) Defaults() LoadBalancerParams {
	// port 80 is left to the redirect listener under HTTPS
	if p.ProductionPort == 0 {
		p.ProductionPort = 80
		if p.HTTPS() {
			p.ProductionPort = 443
		}
	}
	if p.TestPort == 0 {
		p.TestPort = 8080
		if p.HTTPS() {
			p.TestPort = 8443
		}
	}
	if p.HostedZoneName == "" {
		p.HostedZoneName = p.DomainName
	}
	return p
}

func (p LoadBalancerParams) Validate() error {
	if err := validatePort("production port", p.ProductionPort); err != nil {
		return err
	}
	if err := validatePort("test port", p.TestPort); err != nil {
		return err
	}
	if p.ProductionPort == p.TestPort {
		return errors.Errorf("production and test listeners share port %d", p.ProductionPort)
	}
	if p.HTTPS() && (p.ProductionPort == 80 || p.TestPort == 80) {
		// port 80 is taken by the redirect listener
		return errors.New("https listeners cannot use port 80")
	}
	return nil
}

func (p LoadBalancerParams) HTTPS() bool {
	return p.DomainName != ""
}

func (p ListenerParams) HasCondition() bool {
	return len(p.RulePathPatterns) > 0 || len(p.RuleHostHeaders) > 0
}

func (p ListenerParams) Validate() error {
	if !p.HasCondition() {
		return nil
	}
	if p.RulePriority < 1 || p.RulePriority > 50000 {
		return errors.Errorf("rule priority %d is outside 1..50000", p.RulePriority)
	}
	return nil
}

func (p PipelineParams) Defaults() PipelineParams {
	if p.SourceBranch == "" {
		p.SourceBranch = DefaultSourceBranch
	}
	if p.DeploymentConfig == "" {
		p.DeploymentConfig = DefaultDeploymentConfig
	}
	if p.TerminationWaitMinutes == nil {
		wait := DefaultTerminationWaitMinutes
		p.TerminationWaitMinutes = &wait
	}
	if p.BuildEnvironment == nil {
		p.BuildEnvironment = map[string]string{}
	}
	if p.DockerBuildArgs == nil {
		p.DockerBuildArgs = map[string]string{}
	}
	return p
}

func (p PipelineParams) Validate() error {
	if strings.TrimSpace(p.SourceBranch) == "" {
		return errors.New("source branch is required")
	}
	if !isDeploymentConfig(p.DeploymentConfig) {
		return errors.Errorf("unknown deployment config %q", p.DeploymentConfig)
	}
	// CodeDeploy allows up to 2880 minutes (two days)
	if wait := p.TerminationWait(); wait < 0 || wait > 2880 {
		return errors.Errorf("termination wait %d minutes is outside 0..2880", wait)
	}
	return nil
}

// TerminationWait returns the minutes blue tasks keep running after a
// successful deployment.
func (p PipelineParams) TerminationWait() int {
	if p.TerminationWaitMinutes == nil {
		return DefaultTerminationWaitMinutes
	}
	return *p.TerminationWaitMinutes
}

// SortedKeys returns the keys of m in lexical order.
func SortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func isDeploymentConfig(name string) bool {
	for _, c := range DeploymentConfigs {
		if c == name {
			return true
		}
	}
	return false
}

func validatePort(name string, port int) error {
	if port < 1 || port > 65535 {
		return errors.Errorf("%s %d is outside 1..65535", name, port)
	}
	return nil
}

// fargateSizes maps task CPU units to the allowed memory range and step in MiB.
var fargateSizes = map[int][3]int{
	256:   {512, 2048, 0},
	512:   {1024, 4096, 1024},
	1024:  {2048, 8192, 1024},
	2048:  {4096, 16384, 1024},
	4096:  {8192, 30720, 1024},
	8192:  {16384, 61440, 4096},
	16384: {32768, 122880, 8192},
}

func validateFargateSize(cpu, ram int) error {
	size, ok := fargateSizes[cpu]
	if !ok {
		return errors.Errorf("unsupported fargate cpu %d", cpu)
	}
	lo, hi, step := size[0], size[1], size[2]
	if ram < lo || ram > hi {
		return errors.Errorf("memory %d MiB is outside %d..%d for cpu %d", ram, lo, hi, cpu)
	}
	if step == 0 {
		// 256 cpu units only allow 512, 1024 and 2048
		if ram != 512 && ram != 1024 && ram != 2048 {
			return errors.Errorf("memory %d MiB is not valid for cpu %d", ram, cpu)
		}
		return nil
	}
	if (ram-lo)%step != 0 {
		return errors.Errorf("memory %d MiB must be a multiple of %d for cpu %d", ram, step, cpu)
	}
	return nil
}
