package autopilot

import (
	"errors"
	"fmt"
	"strings"

	"github.com/andrescamacho/spacetraders-autopilot/internal/domain/automation"
	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"
)

var policyValidator = validator.New()

// BuildPolicy merges overrides onto the defaults of kind. Override keys are the
// camelCase option names; values may be strings ("15", "true") as they arrive
// from the command line.
func BuildPolicy(kind automation.BehaviorKind, overrides map[string]interface{}) (automation.Policy, error) {
	policy := automation.DefaultPolicy(kind)

	section := policy.Section(kind)
	if section == nil {
		if len(overrides) > 0 {
			return automation.Policy{}, fmt.Errorf("behavior %s takes no policy options", kind)
		}
		return policy, nil
	}

	if len(overrides) > 0 {
		decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
			Result:           section,
			WeaklyTypedInput: true,
			ErrorUnused:      true,
			TagName:          "mapstructure",
		})
		if err != nil {
			return automation.Policy{}, fmt.Errorf("failed to create policy decoder: %w", err)
		}
		if err := decoder.Decode(overrides); err != nil {
			return automation.Policy{}, fmt.Errorf("invalid %s policy override: %w", kind, err)
		}
	}

	if err := policyValidator.Struct(section); err != nil {
		return automation.Policy{}, formatPolicyErrors(kind, err)
	}
	return policy, nil
}

func formatPolicyErrors(kind automation.BehaviorKind, err error) error {
	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return fmt.Errorf("invalid %s policy: %w", kind, err)
	}

	messages := make([]string, 0, len(validationErrs))
	for _, fe := range validationErrs {
		messages = append(messages, fmt.Sprintf("%s must satisfy %s=%s (got %v)", lowerFirst(fe.Field()), fe.Tag(), fe.Param(), fe.Value()))
	}
	return fmt.Errorf("invalid %s policy: %s", kind, strings.Join(messages, "; "))
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}
