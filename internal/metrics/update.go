package metrics

import "enrolsight/internal/datasets"

// UpdateMetrics relates biometric and demographic update volumes to enrolment
// volume by row count. Absent extracts contribute zero.
type UpdateMetrics struct {
	TotalEnrollments            int     `json:"total_enrollments"`
	TotalBiometricUpdates       int     `json:"total_biometric_updates"`
	TotalDemographicUpdates     int     `json:"total_demographic_updates"`
	BiometricToEnrolRatio       float64 `json:"biometric_to_enrol_ratio"`
	DemographicToEnrolRatio     float64 `json:"demographic_to_enrol_ratio"`
	BiometricUpdatePercentage   float64 `json:"biometric_update_percentage"`
	DemographicUpdatePercentage float64 `json:"demographic_update_percentage"`
}

// ComputeUpdate never degrades; a missing extract simply reports zero counts.
func ComputeUpdate(enrol, bio, demo *datasets.Table) UpdateMetrics {
	out := UpdateMetrics{TotalEnrollments: rowCount(enrol)}
	out.TotalBiometricUpdates = rowCount(bio)
	out.TotalDemographicUpdates = rowCount(demo)
	if out.TotalEnrollments > 0 {
		e := float64(out.TotalEnrollments)
		out.BiometricToEnrolRatio = float64(out.TotalBiometricUpdates) / e
		out.DemographicToEnrolRatio = float64(out.TotalDemographicUpdates) / e
		out.BiometricUpdatePercentage = out.BiometricToEnrolRatio * 100
		out.DemographicUpdatePercentage = out.DemographicToEnrolRatio * 100
	}
	return out
}

func rowCount(t *datasets.Table) int {
	if t == nil {
		return 0
	}
	return t.NumRows()
}
