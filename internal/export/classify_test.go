package export

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestClassifyKind(t *testing.T) {
	require.Equal(t, KindSleepAnalysis, ClassifyKind("HKCategoryTypeIdentifierSleepAnalysis"))
	require.Equal(t, KindStepCount, ClassifyKind("HKQuantityTypeIdentifierStepCount"))
	require.Equal(t, KindActiveEnergy, ClassifyKind("HKQuantityTypeIdentifierActiveEnergyBurned"))
	require.Equal(t, KindStandHour, ClassifyKind("HKQuantityTypeIdentifierAppleStandHour"))
	require.Equal(t, KindHeartRate, ClassifyKind("HKQuantityTypeIdentifierHeartRate"))
	require.Equal(t, KindRespiratoryRate, ClassifyKind("HKQuantityTypeIdentifierRespiratoryRate"))

	// Everything else the export carries is outside the pipeline's scope.
	require.Equal(t, KindUnknown, ClassifyKind("HKQuantityTypeIdentifierBodyMass"))
	require.Equal(t, KindUnknown, ClassifyKind(""))
}

func TestClassifyStage(t *testing.T) {
	require.Equal(t, StageInBed, ClassifyStage("HKCategoryValueSleepAnalysisInBed"))
	require.Equal(t, StageAsleep, ClassifyStage("HKCategoryValueSleepAnalysisAsleepUnspecified"))
	require.Equal(t, StageCore, ClassifyStage("HKCategoryValueSleepAnalysisAsleepCore"))
	require.Equal(t, StageDeep, ClassifyStage("HKCategoryValueSleepAnalysisAsleepDeep"))
	require.Equal(t, StageREM, ClassifyStage("HKCategoryValueSleepAnalysisAsleepREM"))
	require.Equal(t, StageAwake, ClassifyStage("HKCategoryValueSleepAnalysisAwake"))

	require.Equal(t, StageUnknown, ClassifyStage("HKCategoryValueSleepAnalysisSomethingNew"))
	require.Equal(t, StageUnknown, ClassifyStage(""))
}
