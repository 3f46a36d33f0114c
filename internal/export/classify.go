package export

// Kind is the canonical measurement category of an observation. Unrecognized
// type tags classify to KindUnknown and are dropped from aggregation; an
// export routinely contains far more measurement kinds than the pipeline
// consumes, so this is not an error.
type Kind int

const (
	KindUnknown Kind = iota
	KindSleepAnalysis
	KindStepCount
	KindActiveEnergy
	KindStandHour
	KindHeartRate
	KindRespiratoryRate
)

// Stage is the sleep stage selected by a sleep-analysis observation's
// category value.
type Stage int

const (
	StageUnknown Stage = iota
	StageInBed
	StageAsleep
	StageCore
	StageDeep
	StageREM
	StageAwake
)

// Mappings are data, not branching logic: adding a measurement kind means
// adding a table row.
var kindByType = map[string]Kind{
	"HKCategoryTypeIdentifierSleepAnalysis":      KindSleepAnalysis,
	"HKQuantityTypeIdentifierStepCount":          KindStepCount,
	"HKQuantityTypeIdentifierActiveEnergyBurned": KindActiveEnergy,
	"HKQuantityTypeIdentifierAppleStandHour":     KindStandHour,
	"HKQuantityTypeIdentifierHeartRate":          KindHeartRate,
	"HKQuantityTypeIdentifierRespiratoryRate":    KindRespiratoryRate,
}

var stageByValue = map[string]Stage{
	"HKCategoryValueSleepAnalysisInBed":             StageInBed,
	"HKCategoryValueSleepAnalysisAsleepUnspecified": StageAsleep,
	"HKCategoryValueSleepAnalysisAsleepCore":        StageCore,
	"HKCategoryValueSleepAnalysisAsleepDeep":        StageDeep,
	"HKCategoryValueSleepAnalysisAsleepREM":         StageREM,
	"HKCategoryValueSleepAnalysisAwake":             StageAwake,
}

// ClassifyKind maps a Record type tag to its canonical kind.
func ClassifyKind(typeTag string) Kind {
	return kindByType[typeTag]
}

// ClassifyStage maps a sleep-analysis category value to its stage.
// Unrecognized values return StageUnknown and are counted nowhere.
func ClassifyStage(value string) Stage {
	return stageByValue[value]
}
