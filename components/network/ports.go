package network

import (
	"fmt"

	"github.com/aws/aws-cdk-go/awscdk/v2/awsec2"
	"github.com/aws/jsii-runtime-go"
	"github.com/pkg/errors"
)

// Listener ports handed out to services sharing one load balancer.
const (
	FirstListenerPort = 10000
	EndListenerPort   = 25000
)

var ErrPortsExhausted = errors.New("no listener ports left")

// PortAllocator hands out ports from [first, end) in ascending order, never
// returning the same port twice.
type PortAllocator struct {
	next     int
	end      int
	reserved map[int]bool
}

func NewPortAllocator(first, end int) *PortAllocator {
	return &PortAllocator{next: first, end: end, reserved: map[int]bool{}}
}

// Reserve marks a port as taken so Allocate skips it.
func (a *PortAllocator) Reserve(port int) {
	a.reserved[port] = true
}

func (a *PortAllocator) Allocate() (int, error) {
	for a.next < a.end {
		port := a.next
		a.next++
		if a.reserved[port] {
			continue
		}
		a.reserved[port] = true
		return port, nil
	}
	return 0, ErrPortsExhausted
}

// Remaining reports how many ports Allocate can still return.
func (a *PortAllocator) Remaining() int {
	n := 0
	for port := a.next; port < a.end; port++ {
		if !a.reserved[port] {
			n++
		}
	}
	return n
}

// SecurityGroupModifier opens single TCP ports on a security group. name
// labels the rule descriptions.
type SecurityGroupModifier struct {
	securityGroup awsec2.ISecurityGroup
	name          string
}

func NewSecurityGroupModifier(sg awsec2.ISecurityGroup, name string) *SecurityGroupModifier {
	return &SecurityGroupModifier{securityGroup: sg, name: name}
}

func (m *SecurityGroupModifier) OpenPort(port int, peer awsec2.IPeer, ingress bool) {
	connection := awsec2.Port_Tcp(jsii.Number(float64(port)))
	if ingress {
		m.securityGroup.AddIngressRule(peer, connection, jsii.String(m.Description(port, true)), jsii.Bool(false))
		return
	}
	m.securityGroup.AddEgressRule(peer, connection, jsii.String(m.Description(port, false)), jsii.Bool(false))
}

// Description returns the rule description for port, e.g.
// "Ingress 80 rule for App-sg-ecs.".
func (m *SecurityGroupModifier) Description(port int, ingress bool) string {
	direction := "Egress"
	if ingress {
		direction = "Ingress"
	}
	return fmt.Sprintf("%s %d rule for %s.", direction, port, m.name)
}
