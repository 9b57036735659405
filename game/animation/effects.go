package animation

import (
	"log"
	"time"
)

const (
	collisionEffectDelay = 100 * time.Millisecond
	wreckageFadeDuration = 1000 * time.Millisecond

	explosionParts     = 20
	explosionBurst     = 5
	explosionInterval  = 50 * time.Millisecond
	explosionSpread    = 20
	particleMinSize    = 10
	particleSizeRange  = 10
	particleDuration   = 1000 * time.Millisecond
	particleFinalScale = 2
)

func logf(format string, args ...interface{}) {
	log.Printf("[Character] "+format, args...)
}

// schedule runs f after d and remembers the timer so Reset can cancel it.
// Nothing runs once Reset has moved past gen.
func (c *Character) schedule(gen uint64, d time.Duration, f func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen {
		return
	}
	c.effects = append(c.effects, c.clock.AfterFunc(d, func() {
		if c.generation() == gen {
			f()
		}
	}))
}

// playCollisionEffect bursts particles over the primary sprite. withFire
// mixes fire with smoke; swapWreckage fades the van out and the wreckage in.
func (c *Character) playCollisionEffect(gen uint64, withFire, swapWreckage bool) {
	if !c.opts.EnableWreckageEffects {
		return
	}

	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		return
	}
	primary := c.targets[0]
	canvas, image, wreckage := primary.canvas, primary.image, primary.wreckage
	c.mu.Unlock()

	box, err := canvas.BoundingBox(image)
	if err != nil {
		logf("failed to measure sprite for collision effect: %v", err)
		return
	}
	centre := box.Center()

	swap := swapWreckage && wreckage != ""
	if swap {
		if err := canvas.MatchTransform(wreckage, image); err != nil {
			logf("failed to align wreckage: %v", err)
			swap = false
		}
	}

	c.schedule(gen, collisionEffectDelay, func() {
		if swap {
			c.fade(canvas, wreckage, 1)
			// The veil hides the van at night, so it keeps its opacity.
			if !c.opts.NightMode {
				c.fade(canvas, image, 0)
			}
		}

		for i := 0; i < explosionParts; i++ {
			var delay time.Duration
			if i >= explosionBurst {
				delay = time.Duration(i-explosionBurst) * explosionInterval
			}
			c.schedule(gen, delay, func() {
				c.spawnParticle(canvas, centre, withFire)
			})
		}
	})
}

func (c *Character) fade(canvas Canvas, id SpriteID, opacity float64) {
	err := canvas.Animate(id, Animation{
		Opacity:  &opacity,
		Duration: wreckageFadeDuration,
		Easing:   EaseLinear,
	}, nil)
	if err != nil {
		logf("failed to fade %s: %v", id, err)
	}
}

// spawnParticle draws one smoke or fire puff near centre that grows, fades
// and removes itself.
func (c *Character) spawnParticle(canvas Canvas, centre Point, withFire bool) {
	c.mu.Lock()
	size := particleMinSize + c.rng.Float64()*particleSizeRange
	x := centre.X + c.rng.Float64()*explosionSpread - explosionSpread/2
	y := centre.Y + c.rng.Float64()*explosionSpread - explosionSpread/2
	url := c.opts.SmokeImageURL
	if withFire && c.rng.Float64() >= 0.5 {
		url = c.opts.FireImageURL
	}
	c.mu.Unlock()

	id, err := canvas.LoadImage(url, Rect{X: x - size/2, Y: y - size/2, Width: size, Height: size})
	if err != nil {
		logf("failed to load particle: %v", err)
		return
	}

	opacity := 0.0
	grow := Scaling(particleFinalScale)
	err = canvas.Animate(id, Animation{
		Transform: &grow,
		Opacity:   &opacity,
		Duration:  particleDuration,
		Easing:    EaseLinear,
	}, func() {
		if err := canvas.RemoveSprite(id); err != nil {
			logf("failed to remove particle %s: %v", id, err)
		}
	})
	if err != nil {
		logf("failed to animate particle %s: %v", id, err)
	}
}
