package nfd

// Stress output modes for the final solve.
const (
	// SCalcResidual is the cheap mid-loop mode: PK2 pseudo-vectors only.
	SCalcResidual = -1
	// SCalcNone skips stress output.
	SCalcNone = 0
	// SCalcPK2 outputs second Piola-Kirchhoff pseudo-vectors per face.
	SCalcPK2 = 1
	// SCalcPrincipal outputs principal values and local eigenvectors.
	SCalcPrincipal = 2
	// SCalcPrincipalGlobal outputs principal values and eigenvectors
	// re-expressed in the global frame through the face rotation.
	SCalcPrincipalGlobal = 3
)

// FaceStresses holds per-face stress output. For PK2 modes Amplitudes holds
// (sx, sy, txy) and Vectors is nil; for principal modes Amplitudes holds
// (s1, s2, 0) and Vectors the two eigen-directions, in-plane components for
// SCalcPrincipal and global components for SCalcPrincipalGlobal.
type FaceStresses struct {
	Amplitudes [][3]float64
	Vectors    [][2]Vec3
}

// Stresses computes the requested per-face stress output from the cached
// force densities and the current geometry. Mode SCalcNone returns nil.
func Stresses(faces []Face, mode int) *FaceStresses {
	if mode == SCalcNone || faces == nil {
		return nil
	}
	out := &FaceStresses{Amplitudes: make([][3]float64, len(faces))}
	if mode >= SCalcPrincipal {
		out.Vectors = make([][2]Vec3, len(faces))
	}
	for i, f := range faces {
		s := f.Stress()
		switch mode {
		case SCalcResidual, SCalcPK2:
			out.Amplitudes[i] = s
		case SCalcPrincipal, SCalcPrincipalGlobal:
			s1, s2, theta := PrincipalStresses(s)
			out.Amplitudes[i] = [3]float64{s1, s2, 0}
			r := PlanarRotation(theta)
			v1 := Vec3{r.At(0, 0), r.At(1, 0), 0}
			v2 := Vec3{r.At(0, 1), r.At(1, 1), 0}
			if mode == SCalcPrincipalGlobal {
				fr := f.Frame()
				v1 = fr.ToGlobal(v1)
				v2 = fr.ToGlobal(v2)
			}
			out.Vectors[i] = [2]Vec3{v1, v2}
		}
	}
	return out
}

// Forces returns the axial force of every edge at the current geometry.
func Forces(edges []*Edge) []float64 {
	f := make([]float64, len(edges))
	for i, e := range edges {
		f[i] = e.Force()
	}
	return f
}

// Lengths returns the current length of every edge.
func Lengths(edges []*Edge) []float64 {
	l := make([]float64, len(edges))
	for i, e := range edges {
		l[i] = e.Length()
	}
	return l
}
