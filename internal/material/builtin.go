package material

import (
	"encoding/json"
	"fmt"

	"github.com/rootexgo/rootex/internal/core/ecs"
)

const (
	BasicName     = "Basic"
	ParticlesName = "Particles"
	SkyName       = "Sky"
	AnimatedName  = "Animated"
)

const (
	DefaultPath          = "rootex/assets/materials/default.rmat"
	DefaultParticlesPath = "rootex/assets/materials/default_particles.rmat"
	AnimatedDefaultPath  = "rootex/assets/materials/animated_default.rmat"
	SkyDefaultPath       = "rootex/assets/materials/sky.rmat"
)

// Color is a linear RGBA color.
type Color [4]float32

var white = Color{1, 1, 1, 1}

// Basic is the standard lit material.
type Basic struct {
	Color              Color   `json:"color"`
	IsLit              bool    `json:"isLit"`
	IsAlpha            bool    `json:"isAlpha"`
	SpecularIntensity  float32 `json:"specularIntensity"`
	SpecularPower      float32 `json:"specularPower"`
	Reflectivity       float32 `json:"reflectivity"`
	RefractionConstant float32 `json:"refractionConstant"`
	Refractivity       float32 `json:"refractivity"`
	IsAffectedBySky    bool    `json:"affectedBySky"`
	DiffuseImage       string  `json:"imageFile"`
	NormalImage        string  `json:"normalImageFile,omitempty"`
	SpecularImage      string  `json:"specularImageFile,omitempty"`
	LightmapImage      string  `json:"lightmapImageFile,omitempty"`
}

func NewBasic() *Basic {
	return &Basic{
		Color:              white,
		IsLit:              true,
		SpecularIntensity:  0.5,
		SpecularPower:      30,
		RefractionConstant: 0.5,
		DiffuseImage:       "rootex/assets/white.png",
	}
}

func (m *Basic) Kind() string                     { return BasicName }
func (m *Basic) Record() (json.RawMessage, error) { return json.Marshal(m) }

func (m *Basic) Draw(ui ecs.Inspector) {
	ui.Field("Color", m.Color)
	ui.Field("Lit", m.IsLit)
	ui.Field("Alpha", m.IsAlpha)
	ui.Field("Diffuse", m.DiffuseImage)
	ui.Field("Specular Intensity", m.SpecularIntensity)
	ui.Field("Specular Power", m.SpecularPower)
	ui.Field("Reflectivity", m.Reflectivity)
	ui.Field("Refractivity", m.Refractivity)
	ui.Field("Affected By Sky", m.IsAffectedBySky)
}

// Particles is the material for particle emitters.
type Particles struct {
	Basic
	Additive bool `json:"additive"`
}

func NewParticles() *Particles {
	m := &Particles{Basic: *NewBasic()}
	m.IsLit = false
	m.IsAlpha = true
	return m
}

func (m *Particles) Kind() string                     { return ParticlesName }
func (m *Particles) Record() (json.RawMessage, error) { return json.Marshal(m) }

func (m *Particles) Draw(ui ecs.Inspector) {
	m.Basic.Draw(ui)
	ui.Field("Additive", m.Additive)
}

// Sky is the skybox material.
type Sky struct {
	SkyImage string `json:"skyImage"`
}

func NewSky() *Sky { return &Sky{SkyImage: "rootex/assets/sky.dds"} }

func (m *Sky) Kind() string                     { return SkyName }
func (m *Sky) Record() (json.RawMessage, error) { return json.Marshal(m) }
func (m *Sky) Draw(ui ecs.Inspector)            { ui.Field("Sky", m.SkyImage) }

// Animated is the skinned mesh material.
type Animated struct {
	Basic
	MaxBones int `json:"maxBones"`
}

func NewAnimated() *Animated {
	return &Animated{Basic: *NewBasic(), MaxBones: 256}
}

func (m *Animated) Kind() string                     { return AnimatedName }
func (m *Animated) Record() (json.RawMessage, error) { return json.Marshal(m) }

func (m *Animated) Draw(ui ecs.Inspector) {
	m.Basic.Draw(ui)
	ui.Field("Max Bones", m.MaxBones)
}

// decode overlays raw onto a default-constructed material so that fields
// missing from the record keep their defaults.
func decode(raw json.RawMessage, base Material) (Material, error) {
	if err := json.Unmarshal(raw, base); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedRecord, err)
	}
	return base, nil
}

// RegisterBuiltins registers the Basic, Particles, Sky and Animated kinds.
func RegisterBuiltins(r *Registry) error {
	kinds := []Kind{
		{
			Name:        BasicName,
			DefaultPath: DefaultPath,
			Default:     func() Material { return NewBasic() },
			FromRecord: func(raw json.RawMessage) (Material, error) {
				return decode(raw, NewBasic())
			},
		},
		{
			Name:        ParticlesName,
			DefaultPath: DefaultParticlesPath,
			Default:     func() Material { return NewParticles() },
			FromRecord: func(raw json.RawMessage) (Material, error) {
				return decode(raw, NewParticles())
			},
		},
		{
			Name:        SkyName,
			DefaultPath: SkyDefaultPath,
			Default:     func() Material { return NewSky() },
			FromRecord: func(raw json.RawMessage) (Material, error) {
				return decode(raw, NewSky())
			},
		},
		{
			Name:        AnimatedName,
			DefaultPath: AnimatedDefaultPath,
			Default:     func() Material { return NewAnimated() },
			FromRecord: func(raw json.RawMessage) (Material, error) {
				return decode(raw, NewAnimated())
			},
		},
	}
	for _, k := range kinds {
		if err := r.Register(k); err != nil {
			return err
		}
	}
	return nil
}
