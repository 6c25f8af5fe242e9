// Package predict turns scraped route samples into failure predictions.
//
// The analyzer compares each route's baseline p95 and error rate against
// fixed thresholds, classifies the trend against the previous poll, and
// emits a severity-ranked prediction list. The latest list is persisted to
// a JSON file and served over /predict and /predictions.
package predict
