package escalation

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed policy.yaml
var defaultPolicyYAML []byte

type Keywords struct {
	ExplicitRequest  []string `yaml:"explicit_request"`
	PaymentDispute   []string `yaml:"payment_dispute"`
	SensitiveContent []string `yaml:"sensitive_content"`
	Frustration      []string `yaml:"frustration"`
}

type Thresholds struct {
	ConsecutiveToolErrors int `yaml:"consecutive_tool_errors"`
	ClarificationLoops    int `yaml:"clarification_loops"`
	FrustrationMinTurns   int `yaml:"frustration_min_turns"`
	EmptyKnowledgeResults int `yaml:"empty_knowledge_results"`
	FailedOrderLookups    int `yaml:"failed_order_lookups"`
	EmptyCatalogResults   int `yaml:"empty_catalog_results"`
}

// Policy is the tenant-independent escalation configuration.
type Policy struct {
	Keywords   Keywords   `yaml:"keywords"`
	Thresholds Thresholds `yaml:"thresholds"`
}

// DefaultPolicy returns the embedded policy.
func DefaultPolicy() *Policy {
	var p Policy
	if err := yaml.Unmarshal(defaultPolicyYAML, &p); err != nil {
		panic(fmt.Sprintf("embedded escalation policy: %v", err))
	}
	return &p
}

// LoadPolicy overlays the YAML file at path on the embedded policy. An empty
// path returns the embedded policy.
func LoadPolicy(path string) (*Policy, error) {
	p := DefaultPolicy()
	if path == "" {
		return p, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read escalation policy: %w", err)
	}
	if err := yaml.Unmarshal(raw, p); err != nil {
		return nil, fmt.Errorf("parse escalation policy %s: %w", path, err)
	}
	if err := p.validate(); err != nil {
		return nil, fmt.Errorf("escalation policy %s: %w", path, err)
	}
	return p, nil
}

func (p *Policy) validate() error {
	t := p.Thresholds
	for name, v := range map[string]int{
		"consecutive_tool_errors": t.ConsecutiveToolErrors,
		"clarification_loops":     t.ClarificationLoops,
		"empty_knowledge_results": t.EmptyKnowledgeResults,
		"failed_order_lookups":    t.FailedOrderLookups,
		"empty_catalog_results":   t.EmptyCatalogResults,
	} {
		if v < 1 {
			return fmt.Errorf("threshold %s must be at least 1", name)
		}
	}
	if len(p.Keywords.ExplicitRequest) == 0 {
		return fmt.Errorf("explicit_request keywords must not be empty")
	}
	return nil
}
