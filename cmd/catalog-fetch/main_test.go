package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/Sternrassler/shopify-catalog-client/internal/testutil"
	"github.com/Sternrassler/shopify-catalog-client/pkg/catalog"
)

// setupEnv points the command at the mock and silences logging.
func setupEnv(t *testing.T, mock *testutil.MockGraphQL) {
	t.Helper()
	t.Setenv("SHOPIFY_API_URI", mock.URL())
	t.Setenv("SHOPIFY_API_TOKEN", "shpat_cli_test")
	t.Setenv("SHOPIFY_API_MIN_DELAY_MS", "1")
	t.Setenv("SHOPIFY_API_MAX_DELAY_MS", "2")
	t.Setenv("SHOPIFY_PUBLICATION_ID", "")
	t.Setenv("REDIS_URL", "")
	t.Setenv("DEBUG", "")
	t.Setenv("LOG_LEVEL", "disabled")
}

func TestRun_Collections(t *testing.T) {
	mock := testutil.NewMockGraphQL()
	defer mock.Close()
	setupEnv(t, mock)

	mock.Enqueue(testutil.NewDataResponse(`{"collections":{"pageInfo":{"hasNextPage":false},"edges":[
		{"cursor":"c1","node":{"id":"gid://shopify/Collection/1","handle":"summer","title":"Summer"}}]}}`))

	var out bytes.Buffer
	if err := run(context.Background(), []string{"-resource", "collections"}, &out); err != nil {
		t.Fatalf("run() error = %v", err)
	}

	var got []catalog.Collection
	if err := json.Unmarshal(out.Bytes(), &got); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, out.String())
	}
	want := []catalog.Collection{{ID: "1", Handle: "summer", Title: "Summer"}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("output = %+v, want %+v", got, want)
	}

	reqs := mock.Requests()
	if len(reqs) != 1 {
		t.Fatalf("requests = %d, want 1", len(reqs))
	}
	if got := reqs[0].Header.Get("X-Shopify-Access-Token"); got != "shpat_cli_test" {
		t.Errorf("token header = %q, want %q", got, "shpat_cli_test")
	}
}

func TestRun_CollectionProductsEmpty(t *testing.T) {
	mock := testutil.NewMockGraphQL()
	defer mock.Close()
	setupEnv(t, mock)

	mock.Enqueue(testutil.NewDataResponse(`{}`))

	var out bytes.Buffer
	if err := run(context.Background(), []string{"-resource", "collection-products", "-id", "42"}, &out); err != nil {
		t.Fatalf("run() error = %v", err)
	}
	if got := strings.TrimSpace(out.String()); got != "[]" {
		t.Errorf("output = %q, want []", got)
	}
}

func TestRun_PublicationProducts(t *testing.T) {
	mock := testutil.NewMockGraphQL()
	defer mock.Close()
	setupEnv(t, mock)
	t.Setenv("SHOPIFY_PUBLICATION_ID", "77")

	mock.Enqueue(testutil.NewDataResponse(`{"collections":{"pageInfo":{"hasNextPage":false},"edges":[{"node":{"id":"gid://shopify/Collection/42","products":{"pageInfo":{"hasNextPage":false},"edges":[
		{"cursor":"a","node":{"id":"gid://shopify/Product/1","publishedOnPublication":true}},
		{"cursor":"b","node":{"id":"gid://shopify/Product/2","publishedOnPublication":false}}]}}}]}}`))

	var out bytes.Buffer
	if err := run(context.Background(), []string{"-resource", "publication-products", "-id", "42"}, &out); err != nil {
		t.Fatalf("run() error = %v", err)
	}

	var got []string
	if err := json.Unmarshal(out.Bytes(), &got); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if want := []string{"1"}; !reflect.DeepEqual(got, want) {
		t.Errorf("output = %v, want %v", got, want)
	}
	if body := mock.Requests()[0].Body; !strings.Contains(body, "gid://shopify/Publication/77") {
		t.Errorf("query missing configured publication: %s", body)
	}
}

func TestRun_ProductNotFound(t *testing.T) {
	mock := testutil.NewMockGraphQL()
	defer mock.Close()
	setupEnv(t, mock)

	mock.Enqueue(testutil.NewDataResponse(`{"product":null}`))

	var out bytes.Buffer
	err := run(context.Background(), []string{"-resource", "product", "-id", "5"}, &out)
	if !errors.Is(err, catalog.ErrNotFound) {
		t.Errorf("run() error = %v, want ErrNotFound", err)
	}
	if out.Len() != 0 {
		t.Errorf("output = %q, want nothing", out.String())
	}
}

func TestRun_Errors(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		env     map[string]string
		wantErr string
	}{
		{
			name:    "unknown resource",
			args:    []string{"-resource", "orders"},
			wantErr: `unknown resource "orders"`,
		},
		{
			name:    "missing id",
			args:    []string{"-resource", "product"},
			wantErr: "-id is required",
		},
		{
			name:    "unknown flag",
			args:    []string{"-bogus"},
			wantErr: "flag provided but not defined",
		},
		{
			name:    "missing token",
			args:    []string{"-resource", "collections"},
			env:     map[string]string{"SHOPIFY_API_TOKEN": ""},
			wantErr: "SHOPIFY_API_TOKEN is required",
		},
		{
			name:    "no publication",
			args:    []string{"-resource", "publication-products", "-id", "42"},
			wantErr: catalog.ErrNoPublication.Error(),
		},
		{
			name:    "unreachable redis",
			args:    []string{"-resource", "collections"},
			env:     map[string]string{"REDIS_URL": "redis://127.0.0.1:1/0"},
			wantErr: "connect to redis",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := testutil.NewMockGraphQL()
			defer mock.Close()
			setupEnv(t, mock)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			var out bytes.Buffer
			err := run(context.Background(), tt.args, &out)
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("run() error = %v, want containing %q", err, tt.wantErr)
			}
			if mock.RequestCount() != 0 {
				t.Errorf("requests = %d, want 0", mock.RequestCount())
			}
		})
	}
}
