// Package scoring turns findings into per-category compliance scores.
//
// Every category starts at MaxScore and loses a severity-weighted penalty
// per finding, floored at zero. The overall score is the weighted mean of
// all five categories, so a category without findings still contributes
// its full score. Score is a pure function of the finding multiset.
package scoring
