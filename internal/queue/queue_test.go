package queue

import (
	"strings"
	"testing"

	"github.com/z26b/storefront/internal/config"
)

func TestDisabledClientSkipsEnqueue(t *testing.T) {
	client, err := NewClient(&config.QueueConfig{Enabled: false})
	if err != nil {
		t.Fatalf("new client failed: %v", err)
	}
	if client.Enabled() {
		t.Fatalf("client should be disabled")
	}
	if err := client.EnqueueCartRefresh(CartRefreshPayload{SessionKey: "oid:a"}); err != nil {
		t.Fatalf("disabled enqueue should be no-op: %v", err)
	}
	if err := client.EnqueueOrderPlaced(OrderPlacedPayload{OrderID: "o1"}); err != nil {
		t.Fatalf("disabled enqueue should be no-op: %v", err)
	}
	if err := client.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}
}

func TestTaskPayloads(t *testing.T) {
	task, err := NewOrderPlacedTask(OrderPlacedPayload{SubmissionID: "sub-1", OrderID: "o1", SessionKey: "oid:a", Mode: "cart"})
	if err != nil {
		t.Fatalf("new task failed: %v", err)
	}
	if task.Type() != TaskOrderPlaced {
		t.Fatalf("unexpected task type: %s", task.Type())
	}
	payload, err := ParseOrderPlacedPayload(task)
	if err != nil || payload.OrderID != "o1" || payload.SubmissionID != "sub-1" {
		t.Fatalf("unexpected payload: %+v %v", payload, err)
	}

	refresh, err := NewCartRefreshTask(CartRefreshPayload{SessionKey: "oid:a", OpenID: "a"})
	if err != nil {
		t.Fatalf("new refresh task failed: %v", err)
	}
	parsed, err := ParseCartRefreshPayload(refresh)
	if err != nil || parsed.OpenID != "a" {
		t.Fatalf("unexpected refresh payload: %+v %v", parsed, err)
	}
	if strings.Contains(string(refresh.Payload()), "token") {
		t.Fatalf("refresh payload must not carry credentials: %s", refresh.Payload())
	}
}

func TestBuildServerConfigDefaults(t *testing.T) {
	opt, cfg := BuildServerConfig(&config.QueueConfig{Host: "redis", Port: 6380})
	if opt.Addr != "redis:6380" {
		t.Fatalf("unexpected addr: %s", opt.Addr)
	}
	if cfg.Concurrency != 10 || cfg.Queues[CriticalQueue] == 0 || cfg.Queues[DefaultQueue] == 0 {
		t.Fatalf("unexpected server config: %+v", cfg)
	}
}
