package nwcal

import "gonum.org/v1/gonum/mat"

// fitWeightedLine fits y = p0 + p1*x minimizing sum((w_i*(y_i - p0 - p1*x_i))^2)
// and returns the coefficients with the unscaled covariance matrix of (p0, p1),
// i.e. the inverse of the weighted normal matrix.
func fitWeightedLine(pts []Point) (coef [2]float64, cov *mat.SymDense, err error) {
	if len(pts) < 2 {
		return coef, nil, &ErrInsufficientData{What: "weighted linear fit", Samples: len(pts)}
	}
	var s, sx, sxx, sy, sxy float64
	for _, p := range pts {
		w2 := p.W * p.W
		s += w2
		sx += w2 * p.X
		sxx += w2 * p.X * p.X
		sy += w2 * p.Y
		sxy += w2 * p.X * p.Y
	}
	normal := mat.NewSymDense(2, []float64{s, sx, sx, sxx})
	var chol mat.Cholesky
	if ok := chol.Factorize(normal); !ok {
		return coef, nil, &ErrInsufficientData{What: "weighted linear fit, singular normal matrix", Samples: len(pts)}
	}
	var sol mat.VecDense
	if err := chol.SolveVecTo(&sol, mat.NewVecDense(2, []float64{sy, sxy})); err != nil {
		return coef, nil, err
	}
	cov = mat.NewSymDense(2, nil)
	if err := chol.InverseTo(cov); err != nil {
		return coef, nil, err
	}
	coef[0], coef[1] = sol.AtVec(0), sol.AtVec(1)
	return coef, cov, nil
}
