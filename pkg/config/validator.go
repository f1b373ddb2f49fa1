package config

import (
	"fmt"
	"strings"

	"github.com/robfig/cron/v3"
)

// ValidateConfig validates every section, wrapping failures with the section sentinel
func (c *Config) ValidateConfig() error {
	c.fillDefaults()

	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Server.Validate(); err != nil {
		return err
	}
	if err := c.Storage.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrStorageConfig, err)
	}
	if err := c.ClickHouse.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrClickHouseConfig, err)
	}
	if err := c.Analytics.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrAnalyticsConfig, err)
	}
	if err := c.Cache.Validate(); err != nil {
		return err
	}
	if err := c.LLM.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrLLMConfig, err)
	}
	if err := c.ObjectStore.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrObjectStoreConfig, err)
	}
	if err := c.Notifier.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrNotifierConfig, err)
	}
	if err := c.validateSchedulerConfig(); err != nil {
		return fmt.Errorf("%w: %v", ErrSchedulerConfig, err)
	}
	return nil
}

func (c *Config) validateSchedulerConfig() error {
	if !c.Scheduler.Enabled {
		return nil
	}
	seen := make(map[string]bool, len(c.Scheduler.Jobs))
	for i := range c.Scheduler.Jobs {
		job := &c.Scheduler.Jobs[i]
		if err := validateScheduledJob(job); err != nil {
			return fmt.Errorf("job %d (%s): %w", i, job.Name, err)
		}
		if seen[job.Name] {
			return fmt.Errorf("%w: duplicate job name %s", ErrInvalidValue, job.Name)
		}
		seen[job.Name] = true
		if job.Kind == JobKindBucketImport && !c.ObjectStore.Enabled {
			return fmt.Errorf("%w: job %s needs object_store.enabled", ErrInvalidValue, job.Name)
		}
	}
	return nil
}

func validateScheduledJob(job *ScheduledJob) error {
	if job.Name == "" {
		return fmt.Errorf("%w: name", ErrMissingRequired)
	}
	if job.Cron == "" {
		return fmt.Errorf("%w: cron", ErrMissingRequired)
	}
	if !isValidCronExpression(job.Cron) {
		return fmt.Errorf("%w: %s", ErrInvalidCron, job.Cron)
	}
	if !isValidValue(job.Kind, []string{JobKindCacheEvict, JobKindAnomalyScan, JobKindBucketImport}) {
		return fmt.Errorf("%w: kind %q", ErrInvalidValue, job.Kind)
	}
	return nil
}

func isValidValue(value string, validValues []string) bool {
	for _, v := range validValues {
		if value == v {
			return true
		}
	}
	return false
}

// isValidCronExpression accepts standard 5 field specs, 6 field specs with
// seconds and the @every/@daily style descriptors
func isValidCronExpression(expr string) bool {
	expr = strings.TrimSpace(expr)
	if strings.HasPrefix(expr, "@") {
		_, err := cron.ParseStandard(expr)
		return err == nil
	}

	switch len(strings.Fields(expr)) {
	case 5:
		_, err := cron.ParseStandard(expr)
		return err == nil
	case 6:
		parser := cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
		_, err := parser.Parse(expr)
		return err == nil
	}
	return false
}
