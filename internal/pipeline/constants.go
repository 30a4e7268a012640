package pipeline

// Step names, used in logs, error messages and latency metrics.
const (
	StepLoad          = "load"
	StepValidate      = "validate"
	StepAggregate     = "aggregate"
	StepBuildBasket   = "build_basket"
	StepMineItemsets  = "mine_itemsets"
	StepGenerateRules = "generate_rules"
	StepSummarize     = "summarize"
)
