package models

// FarmDefaults is the reference data seeded into every new tenant store.
type FarmDefaults struct {
	FeedSettings []FeedSetting
	FeedTypes    []FeedType
}

// DefaultFarmDefaults returns a fresh copy of the built-in reference data.
// Callers may modify the returned value without affecting other tenants.
func DefaultFarmDefaults() FarmDefaults {
	return FarmDefaults{
		FeedSettings: []FeedSetting{
			{Stage: StageNewborn, DailyFeedKg: 0.5},
			{Stage: StageYoungMale, DailyFeedKg: 1.0},
			{Stage: StageYoungFemale, DailyFeedKg: 0.9},
			{Stage: StageAdult, DailyFeedKg: 1.5},
			{Stage: StageSenior, DailyFeedKg: 1.2},
			{Stage: StagePregnant, DailyFeedKg: 2.0},
		},
		FeedTypes: []FeedType{
			{Name: "Barley", Unit: DefaultFeedUnit},
			{Name: "Alfalfa", Unit: DefaultFeedUnit},
			{Name: "Wheat bran", Unit: DefaultFeedUnit},
			{Name: "Corn", Unit: DefaultFeedUnit},
			{Name: "Straw", Unit: DefaultFeedUnit},
			{Name: "Concentrate", Unit: DefaultFeedUnit},
		},
	}
}

// DailyFeedFor looks up a stage in the defaults table.
func (d FarmDefaults) DailyFeedFor(stage Stage) (float64, bool) {
	for _, setting := range d.FeedSettings {
		if setting.Stage == stage {
			return setting.DailyFeedKg, true
		}
	}
	return 0, false
}
