package weiroll

// PlanOption configures the Plan() operation.
type PlanOption func(*planConfig)

// planConfig holds configuration for the Plan() method.
type planConfig struct {
	maxCommands   int
	maxStateSlots int
}

// defaultPlanConfig returns the default plan configuration.
func defaultPlanConfig() *planConfig {
	return &planConfig{
		maxCommands:   256,
		maxStateSlots: MaxStateSlots,
	}
}

// WithMaxCommands caps the total number of commands in the plan, including
// those contributed by subplans. Default is 256.
func WithMaxCommands(max int) PlanOption {
	return func(c *planConfig) {
		c.maxCommands = max
	}
}

// WithMaxStateSlots caps the state slot count below the VM's addressing
// limit of MaxStateSlots.
func WithMaxStateSlots(max int) PlanOption {
	return func(c *planConfig) {
		if max > MaxStateSlots {
			max = MaxStateSlots
		}
		c.maxStateSlots = max
	}
}
