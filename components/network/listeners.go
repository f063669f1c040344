package network

import (
	"strconv"

	"github.com/aws/aws-cdk-go/awscdk/v2/awsec2"
	"github.com/aws/aws-cdk-go/awscdk/v2/awselasticloadbalancingv2"
	"github.com/aws/jsii-runtime-go"
)

// NotFoundAction answers requests no rule matched.
func NotFoundAction() awselasticloadbalancingv2.ListenerAction {
	return awselasticloadbalancingv2.ListenerAction_FixedResponse(jsii.Number(404), &awselasticloadbalancingv2.FixedResponseOptions{
		ContentType: jsii.String("text/plain"),
		MessageBody: jsii.String("Not found."),
	})
}

// RedirectToHttpsAction permanently redirects to the same URL on an HTTPS port.
func RedirectToHttpsAction(port int) awselasticloadbalancingv2.ListenerAction {
	return awselasticloadbalancingv2.ListenerAction_Redirect(&awselasticloadbalancingv2.RedirectOptions{
		Protocol:  jsii.String("HTTPS"),
		Host:      jsii.String("#{host}"),
		Path:      jsii.String("/#{path}"),
		Port:      jsii.String(strconv.Itoa(port)),
		Query:     jsii.String("#{query}"),
		Permanent: jsii.Bool(true),
	})
}

// NewListener adds a listener on port and opens the port to the internet.
// It is HTTPS when the network has a certificate. A nil action falls back to
// NotFoundAction.
func (n *Network) NewListener(id string, port int, action awselasticloadbalancingv2.ListenerAction) awselasticloadbalancingv2.ApplicationListener {
	if action == nil {
		action = NotFoundAction()
	}
	n.AlbPorts.OpenPort(port, awsec2.Peer_AnyIpv4(), true)

	props := &awselasticloadbalancingv2.BaseApplicationListenerProps{
		Port:          jsii.Number(float64(port)),
		Protocol:      awselasticloadbalancingv2.ApplicationProtocol_HTTP,
		Open:          jsii.Bool(false),
		DefaultAction: action,
	}
	if n.Certificate != nil {
		props.Protocol = awselasticloadbalancingv2.ApplicationProtocol_HTTPS
		props.Certificates = &[]awselasticloadbalancingv2.IListenerCertificate{
			awselasticloadbalancingv2.ListenerCertificate_FromCertificateManager(n.Certificate),
		}
	}

	return n.Alb.AddListener(jsii.String(id), props)
}

// NewRedirectListener adds a plain HTTP listener on port redirecting to the
// HTTPS listener on targetPort.
func (n *Network) NewRedirectListener(id string, port, targetPort int) awselasticloadbalancingv2.ApplicationListener {
	n.AlbPorts.OpenPort(port, awsec2.Peer_AnyIpv4(), true)

	return n.Alb.AddListener(jsii.String(id), &awselasticloadbalancingv2.BaseApplicationListenerProps{
		Port:          jsii.Number(float64(port)),
		Protocol:      awselasticloadbalancingv2.ApplicationProtocol_HTTP,
		Open:          jsii.Bool(false),
		DefaultAction: RedirectToHttpsAction(targetPort),
	})
}

func (n *Network) HTTPS() bool {
	return n.Certificate != nil
}
