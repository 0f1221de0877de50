// Package kalman implements the 8-state constant-velocity filter used to
// smooth tracked cluster bounding boxes across frames: position (x, y),
// aspect ratio, height, and their four rates.
package kalman

import "gonum.org/v1/gonum/mat"

const (
	stdWeightPosition = 1.0 / 20.0
	stdWeightVelocity = 1.0 / 160.0
)

// Filter8 is a constant-velocity Kalman filter over state
// [x, y, aspect, height, vx, vy, vaspect, vheight]. The motion matrix is the
// 8x8 identity: the upstream tracker always calls Predict with dt == 0, so
// the velocity terms never feed back into position, matching the original
// tracker's hardcoded-zero-dt construction exactly rather than
// approximating a general constant-velocity model.
type Filter8 struct {
	Mean          *mat.VecDense // 8
	Covariance    *mat.Dense    // 8x8
	UpdateFactor  float64
}

// NewFilter8 initializes a filter from a measurement [x, y, aspect, height].
func NewFilter8(measurement [4]float64, updateFactor float64) *Filter8 {
	mean := mat.NewVecDense(8, []float64{
		measurement[0], measurement[1], measurement[2], measurement[3],
		0, 0, 0, 0,
	})
	height := measurement[3]
	diag := [8]float64{
		2 * stdWeightPosition * height, 2 * stdWeightPosition * height, 0.01, 2 * stdWeightPosition * height,
		10 * stdWeightVelocity * height, 10 * stdWeightVelocity * height, 0.00001, 10 * stdWeightVelocity * height,
	}
	cov := mat.NewDense(8, 8, nil)
	for i, d := range diag {
		cov.Set(i, i, d*d)
	}
	return &Filter8{Mean: mean, Covariance: cov, UpdateFactor: updateFactor}
}

// Predict advances the filter by one step. Since the motion matrix is
// identity, the mean is unchanged; only process noise is added to the
// covariance diagonal.
func (f *Filter8) Predict() {
	height := f.Mean.AtVec(3)
	diag := [8]float64{
		stdWeightPosition * height, stdWeightPosition * height, 0.01, stdWeightPosition * height,
		stdWeightVelocity * height, stdWeightVelocity * height, 0.00001, stdWeightVelocity * height,
	}
	for i, d := range diag {
		f.Covariance.Set(i, i, f.Covariance.At(i, i)+d*d)
	}
}

// project returns the measurement-space mean (first 4 components of Mean)
// and covariance (top-left 4x4 block of Covariance, plus measurement
// noise), since the update matrix is [I4 | 0].
func (f *Filter8) project() ([4]float64, *mat.Dense) {
	height := f.Mean.AtVec(3)
	noise := [4]float64{
		stdWeightPosition * height, stdWeightPosition * height, 0.01, stdWeightPosition * height,
	}
	var mean [4]float64
	cov := mat.NewDense(4, 4, nil)
	for i := 0; i < 4; i++ {
		mean[i] = f.Mean.AtVec(i)
		for j := 0; j < 4; j++ {
			cov.Set(i, j, f.Covariance.At(i, j))
		}
		cov.Set(i, i, cov.At(i, i)+noise[i]*noise[i])
	}
	return mean, cov
}

// Update folds a new measurement into the filter's state. If the projected
// covariance is not positive-definite (Cholesky factorization fails), the
// update is silently skipped, matching the original tracker.
func (f *Filter8) Update(measurement [4]float64) {
	projMean, projCov := f.project()

	sym := mat.NewSymDense(4, nil)
	for i := 0; i < 4; i++ {
		for j := i; j < 4; j++ {
			sym.SetSym(i, j, projCov.At(i, j))
		}
	}
	var chol mat.Cholesky
	if ok := chol.Factorize(sym); !ok {
		return
	}
	var projCovInv mat.Dense
	if err := chol.InverseTo(&projCovInv); err != nil {
		return
	}

	// PHt = first 4 columns of Covariance (the update matrix is [I4 | 0]).
	pHt := mat.NewDense(8, 4, nil)
	for i := 0; i < 8; i++ {
		for j := 0; j < 4; j++ {
			pHt.Set(i, j, f.Covariance.At(i, j))
		}
	}

	var gain mat.Dense // 8x4
	gain.Mul(pHt, &projCovInv)

	innovation := mat.NewVecDense(4, nil)
	for i := 0; i < 4; i++ {
		innovation.SetVec(i, (measurement[i]-projMean[i])*f.UpdateFactor)
	}

	var delta mat.VecDense
	delta.MulVec(&gain, innovation)
	f.Mean.AddVec(f.Mean, &delta)

	var gainProj mat.Dense
	gainProj.Mul(&gain, projCov)
	var correction mat.Dense
	correction.Mul(&gainProj, gain.T())
	f.Covariance.Sub(f.Covariance, &correction)
}
