package pubsub

import (
	"testing"

	"github.com/orthodoxmetrics/om-backend/pkg/config"
)

func TestTopicResourceName(t *testing.T) {
	if got := TopicResourceName("om-prod", "ocr-jobs"); got != "projects/om-prod/topics/ocr-jobs" {
		t.Fatalf("unexpected topic name %q", got)
	}
	full := "projects/other/topics/ocr-jobs"
	if got := TopicResourceName("om-prod", full); got != full {
		t.Fatalf("expected full resource name to pass through, got %q", got)
	}
	if got := TopicResourceName("", "ocr-jobs"); got != "" {
		t.Fatalf("expected empty without project, got %q", got)
	}
	if got := TopicResourceName("om-prod", "  "); got != "" {
		t.Fatalf("expected empty for blank topic, got %q", got)
	}
}

func TestClientOptionsPreferInlineCredentials(t *testing.T) {
	if opts := clientOptions(config.GCPConfig{ProjectID: "om-prod"}); len(opts) != 0 {
		t.Fatalf("expected default credentials, got %d options", len(opts))
	}
	opts := clientOptions(config.GCPConfig{CredentialsJSON: `{"type":"service_account"}`, ApplicationCredentials: "/etc/gcp.json"})
	if len(opts) != 1 {
		t.Fatalf("expected a single credentials option, got %d", len(opts))
	}
}
