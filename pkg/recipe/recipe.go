package recipe

// Recipe は、マッチが確定したレシピを表す不変の値です。
// 同一性は (Title, URL) のペアで判断されます。
type Recipe struct {
	Title string // レシピページの表示タイトル
	URL   string // レシピ詳細ページの正規URL
}

// Key は、マッチ集合の重複排除に使用する識別キーです。
type Key struct {
	Title string
	URL   string
}

// Key は Recipe の識別キーを返します。
func (r Recipe) Key() Key {
	return Key{Title: r.Title, URL: r.URL}
}
