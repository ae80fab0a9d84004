package models

// stageOutputRefs names the document output each stage writes
var stageOutputRefs = map[Stage]string{
	StageConvert:      "outputs.converted_text",
	StageOptimize:     "outputs.optimized_text",
	StageChunk:        "outputs.chunk_count",
	StageExtractFacts: "outputs.fact_count",
	StageIngest:       "outputs.ingested",
}

// StageOutputRef returns the document field a stage writes
func StageOutputRef(stage Stage) string {
	return stageOutputRefs[stage]
}

// StageInputRef returns what a stage reads when it starts
func (d *Document) StageInputRef(stage Stage) string {
	switch stage {
	case StageConvert:
		return "upload:" + d.Filename
	case StageOptimize:
		return StageOutputRef(StageConvert)
	case StageChunk:
		if d.Outputs.OptimizedText != "" {
			return StageOutputRef(StageOptimize)
		}
		return StageOutputRef(StageConvert)
	case StageExtractFacts, StageIngest:
		return StageOutputRef(StageChunk)
	default:
		return ""
	}
}

// ApplyStageOutput stores a completed stage's result. Values are set, never accumulated.
func (d *Document) ApplyStageOutput(stage Stage, result *WebhookResult) {
	switch stage {
	case StageConvert:
		d.Outputs.ConvertedText = result.Text()
	case StageOptimize:
		d.Outputs.OptimizedText = result.Text()
	case StageChunk:
		if n, ok := result.ChunkCount(); ok {
			d.Outputs.ChunkCount = n
		}
	case StageExtractFacts:
		if n, ok := result.FactCount(); ok {
			d.Outputs.FactCount = n
		}
	case StageIngest:
		d.Outputs.Ingested = true
		switch {
		case result != nil && result.IngestedChunks != nil:
			d.Outputs.IngestedChunks = *result.IngestedChunks
		default:
			if n, ok := result.ChunkCount(); ok {
				d.Outputs.IngestedChunks = n
			} else {
				d.Outputs.IngestedChunks = d.Outputs.ChunkCount
			}
		}
	}
}

// ClearStageOutput drops the output written by a stage
func (d *Document) ClearStageOutput(stage Stage) {
	switch stage {
	case StageConvert:
		d.Outputs.ConvertedText = ""
	case StageOptimize:
		d.Outputs.OptimizedText = ""
	case StageChunk:
		d.Outputs.ChunkCount = 0
	case StageExtractFacts:
		d.Outputs.FactCount = 0
	case StageIngest:
		d.Outputs.Ingested = false
		d.Outputs.IngestedChunks = 0
	}
}

// RefreshAggregateStatus derives the document lifecycle status from raw stage statuses
func (d *Document) RefreshAggregateStatus() {
	raw := d.RawStatuses()
	if raw[LastStage()] == StageStatusCompleted {
		d.Status = DocumentStatusCompleted
		return
	}
	started := false
	for _, stage := range StageOrder() {
		switch raw[stage] {
		case StageStatusFailed:
			d.Status = DocumentStatusFailed
			return
		case StageStatusRunning, StageStatusCompleted, StageStatusSkipped:
			started = true
		}
	}
	if started {
		d.Status = DocumentStatusProcessing
	} else {
		d.Status = DocumentStatusPending
	}
}
