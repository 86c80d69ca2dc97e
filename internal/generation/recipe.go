package generation

import (
	"strings"
	"time"
)

// Difficulty is the normalized difficulty rating of a recipe.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
	DifficultyExpert Difficulty = "expert"
)

// NormalizeDifficulty maps the endpoint's free-text difficulty to one of the
// four known ratings. Unrecognized values default to easy.
func NormalizeDifficulty(raw string) Difficulty {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "medium", "moderate", "intermediate":
		return DifficultyMedium
	case "hard", "difficult", "advanced":
		return DifficultyHard
	case "expert", "professional":
		return DifficultyExpert
	default:
		return DifficultyEasy
	}
}

// RecipeIngredient is one ingredient line of a generated recipe.
type RecipeIngredient struct {
	Name        string   `json:"name" msgpack:"name"`
	Amount      string   `json:"amount" msgpack:"amount"`
	Unit        string   `json:"unit,omitempty" msgpack:"unit"`
	IsOptional  bool     `json:"isOptional,omitempty" msgpack:"is_optional"`
	Substitutes []string `json:"substitutes,omitempty" msgpack:"substitutes"`
}

// RecipeStep is one entry of a recipe's detailed step list.
type RecipeStep struct {
	StepNumber  int    `json:"stepNumber" msgpack:"step_number"`
	Instruction string `json:"instruction" msgpack:"instruction"`
	Duration    string `json:"duration,omitempty" msgpack:"duration"`
	Technique   string `json:"technique,omitempty" msgpack:"technique"`
	Tips        string `json:"tips,omitempty" msgpack:"tips"`
}

// Nutrition holds per-serving nutrition figures.
type Nutrition struct {
	Calories      float64 `json:"calories" msgpack:"calories"`
	Protein       float64 `json:"protein" msgpack:"protein"`
	Carbohydrates float64 `json:"carbohydrates" msgpack:"carbohydrates"`
	Fat           float64 `json:"fat" msgpack:"fat"`
}

// RecipeSource attributes a recipe to where it was adapted from.
type RecipeSource struct {
	Name   string `json:"name" msgpack:"name"`
	URL    string `json:"url,omitempty" msgpack:"url"`
	Author string `json:"author,omitempty" msgpack:"author"`
}

// Recipe is one generated recipe as returned by the remote endpoint.
type Recipe struct {
	ID                  string             `json:"id" msgpack:"id"`
	Name                string             `json:"name" msgpack:"name"`
	Description         string             `json:"description,omitempty" msgpack:"description"`
	Instructions        []string           `json:"instructions" msgpack:"instructions"`
	DetailedSteps       []RecipeStep       `json:"detailedSteps,omitempty" msgpack:"detailed_steps"`
	Ingredients         []RecipeIngredient `json:"ingredients" msgpack:"ingredients"`
	ImageURL            string             `json:"imageURL,omitempty" msgpack:"image_url"`
	Tags                []string           `json:"tags,omitempty" msgpack:"tags"`
	PrepTime            string             `json:"prepTime,omitempty" msgpack:"prep_time"`
	CookTime            string             `json:"cookTime,omitempty" msgpack:"cook_time"`
	Servings            int                `json:"servings,omitempty" msgpack:"servings"`
	Difficulty          Difficulty         `json:"difficulty,omitempty" msgpack:"difficulty"`
	CuisineType         string             `json:"cuisineType,omitempty" msgpack:"cuisine_type"`
	NutritionPerServing *Nutrition         `json:"nutritionPerServing,omitempty" msgpack:"nutrition_per_serving"`
	Tips                []string           `json:"tips,omitempty" msgpack:"tips"`
	Source              *RecipeSource      `json:"source,omitempty" msgpack:"source"`
	DateGenerated       time.Time          `json:"dateGenerated" msgpack:"date_generated"`
}

// normalize fixes up a freshly decoded recipe: difficulty collapses to one of
// the known ratings and a missing generation date defaults to now.
func (r *Recipe) normalize(now time.Time) {
	r.Difficulty = NormalizeDifficulty(string(r.Difficulty))
	if r.DateGenerated.IsZero() {
		r.DateGenerated = now
	}
}
