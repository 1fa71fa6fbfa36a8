package webclient_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/raysh454/mdinject/internal/logging"
	"github.com/raysh454/mdinject/internal/webclient"
)

func TestNewWebClient_DefaultBackend(t *testing.T) {
	t.Parallel()
	client, err := webclient.NewWebClient(webclient.Config{}, logging.NopLogger{})
	if err != nil {
		t.Fatalf("NewWebClient: %v", err)
	}
	defer client.Close()
	if _, ok := client.(*webclient.NetHTTPClient); !ok {
		t.Fatalf("expected *NetHTTPClient, got %T", client)
	}
}

func TestNewWebClient_CaseInsensitiveName(t *testing.T) {
	t.Parallel()
	client, err := webclient.NewWebClient(webclient.Config{Client: " NetHTTP "}, nil)
	if err != nil {
		t.Fatalf("NewWebClient: %v", err)
	}
	defer client.Close()
}

func TestNewWebClient_Chromedp(t *testing.T) {
	t.Parallel()
	client, err := webclient.NewWebClient(webclient.Config{Client: webclient.ClientChromedp}, nil)
	if err != nil {
		t.Skipf("Skipping chromedp test (no browser available): %v", err)
	}
	defer client.Close()

	_, err = client.Do(context.Background(), &webclient.Request{Method: "POST", URL: "http://example.com"})
	if err == nil || !strings.Contains(err.Error(), "not supported") {
		t.Fatalf("expected method not supported error, got %v", err)
	}
}

func TestNewWebClient_UnknownBackend(t *testing.T) {
	t.Parallel()
	client, err := webclient.NewWebClient(webclient.Config{Client: "gopher"}, nil)
	if err == nil {
		t.Fatal("expected error for unknown backend")
	}
	if client != nil {
		t.Fatal("expected nil client for unknown backend")
	}
}

type stubClient struct{}

func (stubClient) Do(context.Context, *webclient.Request) (*webclient.Response, error) {
	return nil, errors.New("stub")
}
func (stubClient) Get(context.Context, string) (*webclient.Response, error) {
	return nil, errors.New("stub")
}
func (stubClient) Close() error { return nil }

func TestRegisterBackend_CustomAndFailing(t *testing.T) {
	webclient.RegisterBackend("Stub-Test", func(webclient.Config, logging.Logger) (webclient.WebClient, error) {
		return stubClient{}, nil
	})
	webclient.RegisterBackend("broken-test", func(webclient.Config, logging.Logger) (webclient.WebClient, error) {
		return nil, errors.New("nope")
	})

	client, err := webclient.NewWebClient(webclient.Config{Client: "stub-test"}, nil)
	if err != nil {
		t.Fatalf("NewWebClient: %v", err)
	}
	if _, ok := client.(stubClient); !ok {
		t.Fatalf("expected stubClient, got %T", client)
	}

	if _, err := webclient.NewWebClient(webclient.Config{Client: "broken-test"}, nil); err == nil {
		t.Fatal("expected constructor error to propagate")
	}

	found := false
	for _, name := range webclient.ListBackends() {
		if name == "stub-test" {
			found = true
		}
	}
	if !found {
		t.Fatalf("stub-test missing from %v", webclient.ListBackends())
	}
}
