// Package cohort groups customers by acquisition month and computes retention
// percentages at fixed forward offsets (1, 2, 3, 6 and 12 months), cumulative
// revenue and average lifetime value per cohort.
//
// Records are recomputed in full on every run rather than patched
// incrementally: lifetime revenue and churn status change continuously, and a
// full overwrite is the only way to stay drift-free when cancellations arrive
// late.
package cohort
