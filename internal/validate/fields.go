package validate

import (
	"net/mail"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/kidsparis/activity-crawler/internal/activity"
	"github.com/kidsparis/activity-crawler/internal/logging"
	"github.com/kidsparis/activity-crawler/internal/metrics"
)

// Config tunes validation thresholds.
type Config struct {
	AuthorityMinSignals int     `mapstructure:"authority_min_signals"`
	ConfidenceFloor     float64 `mapstructure:"confidence_floor"`
}

// Validator cleans entity fields and applies the authority check.
// Malformed optional fields are cleared with a warning rather than
// rejecting the whole entity; a missing name or a confidence below the
// floor is fatal.
type Validator struct {
	authority Authority
	floor     float64
	logger    *zap.Logger
}

func New(cfg Config, logger *zap.Logger) *Validator {
	return &Validator{
		authority: NewAuthority(cfg.AuthorityMinSignals),
		floor:     cfg.ConfidenceFloor,
		logger:    logging.OrNop(logger),
	}
}

// Validate normalizes fields in place and returns the verdict. The
// entity's Validation field is set either way so callers can inspect
// why something was rejected.
func (v *Validator) Validate(e *activity.Entity) activity.Validation {
	v.cleanFields(e)

	verdict := v.authority.Score(*e)
	if e.Name == "" {
		verdict.Valid = false
	}
	if e.Confidence < v.floor {
		verdict.Valid = false
	}
	e.Validation = verdict

	outcome := "rejected"
	if verdict.Valid {
		outcome = "accepted"
	}
	metrics.ObserveValidation(outcome)
	return verdict
}

func (v *Validator) cleanFields(e *activity.Entity) {
	e.Name = strings.TrimSpace(e.Name)

	if e.Email != "" {
		if _, err := mail.ParseAddress(e.Email); err != nil {
			v.logger.Warn("dropping malformed email",
				zap.String("name", e.Name),
				zap.String("email", e.Email),
			)
			e.Email = ""
		} else {
			e.Email = strings.ToLower(e.Email)
		}
	}

	if e.Phone != "" {
		if digits := activity.NormalizePhone(e.Phone); digits == "" {
			v.logger.Warn("dropping malformed phone",
				zap.String("name", e.Name),
				zap.String("phone", e.Phone),
			)
			e.Phone = ""
		} else {
			e.Phone = activity.FormatPhone(digits)
		}
	}

	if e.Website != "" {
		u, err := url.Parse(e.Website)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Hostname() == "" {
			v.logger.Warn("dropping malformed website",
				zap.String("name", e.Name),
				zap.String("website", e.Website),
			)
			e.Website = ""
		}
	}
}
