package credential

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/runtime"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
)

const (
	moduleName    = "docbind/credential"
	moduleVersion = "v0.1.0"
)

// AzureTokenSource adapts an azcore.TokenCredential to TokenSource.
type AzureTokenSource struct {
	cred azcore.TokenCredential
}

// NewAzureTokenSource wraps cred.
func NewAzureTokenSource(cred azcore.TokenCredential) *AzureTokenSource {
	return &AzureTokenSource{cred: cred}
}

// NewDefaultAzureTokenSource uses the ambient DefaultAzureCredential chain
// (environment, workload identity, managed identity, Azure CLI, ...).
func NewDefaultAzureTokenSource() (*AzureTokenSource, error) {
	cred, err := azidentity.NewDefaultAzureCredential(nil)
	if err != nil {
		return nil, fmt.Errorf("default azure credential: %w", err)
	}
	return NewAzureTokenSource(cred), nil
}

// Token requests a token for scope. Resource-style scopes get the "/.default" suffix.
func (a *AzureTokenSource) Token(ctx context.Context, scope string) (string, error) {
	if !strings.HasSuffix(scope, "/.default") {
		scope = strings.TrimRight(scope, "/") + "/.default"
	}
	tok, err := a.cred.GetToken(ctx, policy.TokenRequestOptions{Scopes: []string{scope}})
	if err != nil {
		return "", err
	}
	return tok.Token, nil
}

// HTTPPoster implements Poster over an azcore pipeline.
type HTTPPoster struct {
	// Options configures the pipeline. Nil uses the azcore defaults.
	Options *policy.ClientOptions

	once     sync.Once
	pipeline runtime.Pipeline
}

// Post sends an empty-bodied POST with a bearer token and returns the body.
// A non-2xx status is returned as an *azcore.ResponseError carrying the
// status and the service's error code.
func (p *HTTPPoster) Post(ctx context.Context, url, bearer string) (string, error) {
	p.once.Do(func() {
		p.pipeline = runtime.NewPipeline(moduleName, moduleVersion, runtime.PipelineOptions{}, p.Options)
	})

	req, err := runtime.NewRequest(ctx, http.MethodPost, url)
	if err != nil {
		return "", err
	}
	req.Raw().Header.Set("Authorization", "Bearer "+bearer)

	resp, err := p.pipeline.Do(req)
	if err != nil {
		return "", err
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return "", runtime.NewResponseError(resp)
	}

	body, err := runtime.Payload(resp)
	if err != nil {
		return "", err
	}
	return string(body), nil
}
