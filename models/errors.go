package models

import (
	"errors"
)

var (
	ErrNoOptions          = errors.New("no initialized model options")
	ErrTargetLenMismatch  = errors.New("target length does not match target rows")
	ErrNoTrainingMatrix   = errors.New("no training matrix")
	ErrNoTargetMatrix     = errors.New("no target matrix")
	ErrNoDesignMatrix     = errors.New("no design matrix for inference")
	ErrFeatureLenMismatch = errors.New("number of features does not match number of model coefficients")
	ErrPenaltyFactorSize  = errors.New("penalty factor does not have the same number of entries as training features")
	ErrNegativePenalty    = errors.New("negative penalty factor")
	ErrSingularSystem     = errors.New("normal equations are singular")
	ErrNotConverged       = errors.New("iteratively reweighted least squares did not converge")
	ErrUnknownLink        = errors.New("unknown link function")
)
