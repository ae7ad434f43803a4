// Package kube is the discovery layer: it fetches the named resources of a
// resource kind from a live cluster and hands cleaned documents to the
// transformation engine. The engine itself performs no network I/O.
package kube

import (
	"fmt"
	"os"
	"path/filepath"

	"k8s.io/client-go/discovery"
	"k8s.io/client-go/discovery/cached/memory"
	"k8s.io/client-go/dynamic"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/restmapper"
	"k8s.io/client-go/tools/clientcmd"
)

// ClientOptions configures Kubernetes client creation.
type ClientOptions struct {
	// Kubeconfig is the path to the kubeconfig file.
	// Precedence: this field > DRGEN_KUBECONFIG env > KUBECONFIG env > ~/.kube/config
	Kubeconfig string

	// Context is the Kubernetes context to use.
	// If empty, uses the current-context from kubeconfig.
	Context string
}

// Client wraps the API clients the discovery layer needs.
type Client struct {
	// Dynamic fetches arbitrary resources by group/version/resource.
	Dynamic dynamic.Interface

	// Mapper resolves kind names to REST mappings.
	Mapper *restmapper.DeferredDiscoveryRESTMapper

	// RestConfig is the underlying REST configuration.
	RestConfig *rest.Config
}

// NewClient creates a Kubernetes client with the given options.
func NewClient(opts ClientOptions) (*Client, error) {
	restConfig, err := buildRestConfig(opts)
	if err != nil {
		return nil, fmt.Errorf("building kubernetes config: %w", err)
	}

	dynamicClient, err := dynamic.NewForConfig(restConfig)
	if err != nil {
		return nil, fmt.Errorf("creating dynamic client: %w", err)
	}

	discoveryClient, err := discovery.NewDiscoveryClientForConfig(restConfig)
	if err != nil {
		return nil, fmt.Errorf("creating discovery client: %w", err)
	}
	mapper := restmapper.NewDeferredDiscoveryRESTMapper(memory.NewMemCacheClient(discoveryClient))

	return &Client{
		Dynamic:    dynamicClient,
		Mapper:     mapper,
		RestConfig: restConfig,
	}, nil
}

// buildRestConfig resolves kubeconfig with precedence:
// flag > DRGEN_KUBECONFIG env > KUBECONFIG env > ~/.kube/config
func buildRestConfig(opts ClientOptions) (*rest.Config, error) {
	loadingRules := &clientcmd.ClientConfigLoadingRules{
		ExplicitPath: resolveKubeconfig(opts.Kubeconfig),
	}

	overrides := &clientcmd.ConfigOverrides{}
	if opts.Context != "" {
		overrides.CurrentContext = opts.Context
	}

	config := clientcmd.NewNonInteractiveDeferredLoadingClientConfig(
		loadingRules,
		overrides,
	)

	return config.ClientConfig()
}

func resolveKubeconfig(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if v := os.Getenv("DRGEN_KUBECONFIG"); v != "" {
		return v
	}
	if v := os.Getenv("KUBECONFIG"); v != "" {
		return v
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".kube", "config")
}
