package pipeline

// Artifact key layout. Every artifact lives under the job identifier prefix,
// so listing "<job>/" sees exactly one job's state.

const aggregatedTextSuffix = "/aggregated_text.json"

func ManifestKey(jobID string) string {
	return jobID + "/manifest.json"
}

func AggregatedTextKey(jobID string) string {
	return jobID + aggregatedTextSuffix
}

func ChunksKey(jobID string) string {
	return jobID + "/embeddings/chunks.json"
}

func VectorsKey(jobID string) string {
	return jobID + "/embeddings/vectors.json"
}

func CompositeRecordKey(jobID string) string {
	return jobID + "/combined_responses.json"
}
