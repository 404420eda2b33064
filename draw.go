package scenebridge

// Fit controls how an artboard is mapped into its target rectangle.
type Fit uint8

const (
	FitContain Fit = iota
	FitCover
	FitFill
	FitFitWidth
	FitFitHeight
	FitNone
	FitScaleDown
	FitLayout
)

// Alignment positions the fitted artboard within the target rectangle.
type Alignment uint8

const (
	AlignCenter Alignment = iota
	AlignTopLeft
	AlignTopCenter
	AlignTopRight
	AlignCenterLeft
	AlignCenterRight
	AlignBottomLeft
	AlignBottomCenter
	AlignBottomRight
)

// Mat2D is a 2x3 affine transform in column-major order:
//
//	| XX YX |
//	| XY YY |
//	| TX TY |
type Mat2D struct {
	XX, YX float32
	XY, YY float32
	TX, TY float32
}

// Identity returns the identity transform.
func Identity() Mat2D {
	return Mat2D{XX: 1, YY: 1}
}

// DrawEntry names one (artboard, state machine, transform) tuple inside a
// batched draw. StateMachine may be the zero Handle for a static artboard.
type DrawEntry struct {
	Artboard     Handle
	StateMachine Handle
	Transform    Mat2D
}

// DrawOptions configures a batched draw dispatch as a whole.
type DrawOptions struct {
	Fit        Fit
	Align      Alignment
	ClearColor uint32
	Scale      float32
	Clear      bool
}
