package identities

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/Aidin1998/accounts/common/apiutil"
	"github.com/Aidin1998/accounts/pkg/errors"
	"github.com/Aidin1998/accounts/pkg/metrics"
	"github.com/Aidin1998/accounts/pkg/models"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

const (
	// MaxHotkeys is the largest accepted number of hotkey bindings.
	MaxHotkeys      = 200
	maxActionLength = 100
)

var modifiers = map[string]string{
	"ctrl":    "ctrl",
	"control": "ctrl",
	"alt":     "alt",
	"option":  "alt",
	"opt":     "alt",
	"shift":   "shift",
	"meta":    "meta",
	"cmd":     "meta",
	"command": "meta",
}

var modifierOrder = []string{"ctrl", "alt", "shift", "meta"}

var namedKeys = map[string]bool{
	"enter": true, "return": true, "escape": true, "esc": true, "space": true,
	"tab": true, "backspace": true, "delete": true, "del": true, "insert": true,
	"home": true, "end": true, "pageup": true, "pagedown": true,
	"up": true, "down": true, "left": true, "right": true,
	"arrowup": true, "arrowdown": true, "arrowleft": true, "arrowright": true,
}

var (
	functionKey   = regexp.MustCompile(`^f([1-9]|1[0-9]|2[0-4])$`)
	actionPattern = regexp.MustCompile(`^[a-z0-9_-]+(:[a-z0-9_-]+)?$`)
)

// normalizeHotkey returns the canonical form of a key combination:
// lowercase, modifiers in ctrl+alt+shift+meta order, then the key.
func normalizeHotkey(raw string) (string, bool) {
	parts := strings.Split(strings.ToLower(strings.TrimSpace(raw)), "+")
	present := make(map[string]bool, len(parts))
	key := ""
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			return "", false
		}
		if mod, ok := modifiers[part]; ok {
			if present[mod] {
				return "", false
			}
			present[mod] = true
			continue
		}
		if key != "" || !isKey(part) {
			return "", false
		}
		key = part
	}
	if key == "" {
		return "", false
	}

	combo := make([]string, 0, len(modifierOrder)+1)
	for _, mod := range modifierOrder {
		if present[mod] {
			combo = append(combo, mod)
		}
	}
	return strings.Join(append(combo, key), "+"), true
}

func isKey(part string) bool {
	if namedKeys[part] || functionKey.MatchString(part) {
		return true
	}
	if len(part) != 1 {
		return false
	}
	c := part[0]
	return c >= 'a' && c <= 'z' || c >= '0' && c <= '9' || strings.IndexByte("`-=[]\\;',./", c) >= 0
}

func normalizeAction(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

func validAction(action string) bool {
	return len(action) <= maxActionLength && actionPattern.MatchString(action)
}

// HotkeysValidator checks and normalizes a hotkeys configuration.
type HotkeysValidator struct {
	v *apiutil.Validator
}

func NewHotkeysValidator() (*HotkeysValidator, error) {
	v := apiutil.NewValidator()
	if err := v.RegisterValidation("hotkey", func(fl validator.FieldLevel) bool {
		_, ok := normalizeHotkey(fl.Field().String())
		return ok
	}); err != nil {
		return nil, err
	}
	if err := v.RegisterValidation("hotkey_action", func(fl validator.FieldLevel) bool {
		return validAction(normalizeAction(fl.Field().String()))
	}); err != nil {
		return nil, err
	}
	return &HotkeysValidator{v}, nil
}

// Validate returns the normalized configuration, or an Invalid error with one
// field entry per violation. A nil map means the field was not sent.
func (h *HotkeysValidator) Validate(raw models.HotkeysConfig) (models.HotkeysConfig, error) {
	invalid := errors.Invalid.Explain("Invalid hotkeys configuration")
	if raw == nil {
		return nil, invalid.WithField("required", "custom_hotkeys", "This field is required.")
	}
	if len(raw) > MaxHotkeys {
		return nil, invalid.WithField("max", "custom_hotkeys",
			fmt.Sprintf("Ensure this field has no more than %d hotkeys.", MaxHotkeys))
	}

	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var fields []errors.FieldError
	normalized := make(models.HotkeysConfig, len(raw))
	source := make(map[string]string, len(raw))
	for _, k := range keys {
		field := "custom_hotkeys." + k
		ok := true
		if err := h.v.Var(field, k, "hotkey"); err != nil {
			fields = append(fields, errors.NewFieldError("hotkey", field, fmt.Sprintf("Invalid hotkey: %q", k)))
			ok = false
		}
		action := normalizeAction(raw[k])
		if err := h.v.Var(field, raw[k], "hotkey_action"); err != nil {
			fields = append(fields, errors.NewFieldError("hotkey_action", field, fmt.Sprintf("Invalid action: %q", raw[k])))
			ok = false
		}
		if !ok {
			continue
		}

		combo, _ := normalizeHotkey(k)
		if prev, dup := source[combo]; dup {
			fields = append(fields, errors.NewFieldError("duplicate", field,
				fmt.Sprintf("Hotkey %q duplicates %q", k, prev)))
			continue
		}
		source[combo] = k
		normalized[combo] = action
	}

	if len(fields) > 0 {
		return nil, invalid.WithFields(fields)
	}
	return normalized, nil
}

// GetHotkeys returns the user's stored configuration. Stored data that no
// longer validates yields an empty configuration.
func (s *Service) GetHotkeys(ctx context.Context, actor *models.User) (models.HotkeysConfig, error) {
	user, err := s.store.User(ctx, actor.ID)
	if err != nil {
		s.log.Error("failed to load hotkeys", zap.Uint("user_id", actor.ID), zap.Error(err))
		return nil, errors.Internal.Explain("Failed to retrieve hotkeys configuration").Wrap(err)
	}
	if user.CustomHotkeys == "" {
		return models.HotkeysConfig{}, nil
	}

	var stored models.HotkeysConfig
	if err := json.Unmarshal([]byte(user.CustomHotkeys), &stored); err != nil {
		s.log.Warn("invalid stored hotkeys", zap.Uint("user_id", user.ID), zap.Error(err))
		metrics.InvalidStoredHotkeys.Inc()
		return models.HotkeysConfig{}, nil
	}
	if stored == nil {
		return models.HotkeysConfig{}, nil
	}

	config, err := s.hotkeys.Validate(stored)
	if err != nil {
		s.log.Warn("invalid stored hotkeys", zap.Uint("user_id", user.ID), zap.Error(err))
		metrics.InvalidStoredHotkeys.Inc()
		return models.HotkeysConfig{}, nil
	}
	return config, nil
}

// UpdateHotkeys replaces the user's configuration with the normalized form of
// raw. Nothing is written when raw is invalid.
func (s *Service) UpdateHotkeys(ctx context.Context, actor *models.User, raw models.HotkeysConfig) (models.HotkeysConfig, error) {
	config, err := s.hotkeys.Validate(raw)
	if err != nil {
		return nil, err
	}

	data, err := json.Marshal(config)
	if err != nil {
		return nil, errors.Internal.Explain("Failed to update hotkeys configuration").Wrap(err)
	}
	if err := s.store.SetHotkeys(ctx, actor.ID, string(data)); err != nil {
		s.log.Error("failed to update hotkeys", zap.Uint("user_id", actor.ID), zap.Error(err))
		return nil, errors.Internal.Explain("Failed to update hotkeys configuration").Wrap(err)
	}

	s.log.Info("updated hotkeys", zap.Uint("user_id", actor.ID), zap.Int("count", len(config)))
	return config, nil
}
