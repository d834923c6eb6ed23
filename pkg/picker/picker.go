package picker

import (
	"errors"
	"math/rand"

	"github.com/shouni/go-recipe-roulette/pkg/recipe"
)

// ErrNoRecipes は、選択対象のレシピが1件もない場合に返されるエラーです。
// 試行予算内でマッチが見つからなかったことを示す、唯一の検証済み失敗経路です。
var ErrNoRecipes = errors.New("試行回数内でレシピが見つかりませんでした。試行予算を増やすか、フィルタを緩めてください")

// Pick は、与えられたレシピ集合から一様ランダムに1件を選択します。
// 空の集合に対しては ErrNoRecipes を返します。
func Pick(recipes []recipe.Recipe) (recipe.Recipe, error) {
	if len(recipes) == 0 {
		return recipe.Recipe{}, ErrNoRecipes
	}
	return recipes[rand.Intn(len(recipes))], nil
}
