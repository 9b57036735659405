// Package scene is the server-side drawing surface for the van animation.
//
// A Scene keeps every sprite's transform as an affine matrix, interpolates
// running animations against its clock, and publishes each drawing change
// as a Command. Browser clients replay the commands; tests and the simulate
// command read them from a Recorder.
//
//	rec := &scene.Recorder{}
//	sc := scene.New(scene.WithClock(clock), scene.WithSink(rec))
//	van, _ := animation.NewCharacter(sc, opts)
package scene
