package models

// ResolveEffectiveStatuses computes the status shown to clients for every
// stage. Raw COMPLETED, FAILED and RUNNING are authoritative. A PENDING stage
// with any later stage RUNNING or COMPLETED is inferred SKIPPED when optional
// and COMPLETED when required. Missing raw entries count as PENDING.
func ResolveEffectiveStatuses(raw map[Stage]StageStatus) map[Stage]StageStatus {
	order := StageOrder()
	effective := make(map[Stage]StageStatus, len(order))

	// downstreamStarted[i] is true when some stage after i is RUNNING or COMPLETED
	downstreamStarted := make([]bool, len(order))
	started := false
	for i := len(order) - 1; i >= 0; i-- {
		downstreamStarted[i] = started
		if st := rawStatus(raw, order[i]); st == StageStatusRunning || st == StageStatusCompleted {
			started = true
		}
	}

	for i, stage := range order {
		st := rawStatus(raw, stage)
		switch {
		case st == StageStatusCompleted || st == StageStatusFailed || st == StageStatusRunning:
			effective[stage] = st
		case st == StageStatusPending && downstreamStarted[i] && IsOptional(stage):
			effective[stage] = StageStatusSkipped
		case st == StageStatusPending && downstreamStarted[i]:
			effective[stage] = StageStatusCompleted
		default:
			effective[stage] = st
		}
	}
	return effective
}

// EffectiveStatus resolves a single stage
func EffectiveStatus(raw map[Stage]StageStatus, stage Stage) StageStatus {
	return ResolveEffectiveStatuses(raw)[stage]
}

// ExecutabilityReason explains why a stage cannot run. Empty means it can.
func ExecutabilityReason(effective map[Stage]StageStatus, stage Stage) string {
	if !stage.IsValid() {
		return "unknown stage " + string(stage)
	}
	switch effective[stage] {
	case StageStatusRunning:
		return "stage " + string(stage) + " is already running"
	case StageStatusCompleted:
		return "stage " + string(stage) + " is already completed"
	}
	for _, pred := range Predecessors(stage) {
		if IsOptional(pred) {
			continue
		}
		if effective[pred] != StageStatusCompleted {
			return "required stage " + string(pred) + " is " + string(effective[pred])
		}
	}
	return ""
}

func rawStatus(raw map[Stage]StageStatus, stage Stage) StageStatus {
	if st, ok := raw[stage]; ok && st != "" {
		return st
	}
	return StageStatusPending
}
