package page

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// 構造化レシピメタデータ (JSON-LD) のデシリアライズ。
// @type / keywords / recipeCategory は、文字列単体でもリストでも記述されうるため、
// 実行時の型検査ではなく明示的なリスト型としてモデル化します。

// textList は、文字列または文字列リストのどちらの形でも受け取れるフィールド型です。
type textList []string

// UnmarshalJSON は textList のカスタムデシリアライズを実装します。
// 文字列以外のリスト要素は文字列表現に変換され、想定外の形状は空として扱われます。
func (l *textList) UnmarshalJSON(data []byte) error {
	// JSON null は文字列へのデシリアライズがエラーなしで素通りするため、先に除外する
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*l = nil
		return nil
	}

	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		*l = textList{single}
		return nil
	}

	var many []any
	if err := json.Unmarshal(data, &many); err == nil {
		out := make(textList, 0, len(many))
		for _, v := range many {
			if s, ok := v.(string); ok {
				out = append(out, s)
			} else {
				out = append(out, fmt.Sprint(v))
			}
		}
		*l = out
		return nil
	}

	// null やオブジェクトなどの想定外の形状は無視する
	*l = nil
	return nil
}

// metadataBlock は、JSON-LD ブロックのうち本システムが関心を持つフィールドです。
type metadataBlock struct {
	Type     textList `json:"@type"`
	Keywords textList `json:"keywords"`
	Category textList `json:"recipeCategory"`
}

// parseMetadataBlocks は、JSON-LD のトップレベルをパースします。
// トップレベルはオブジェクト単体でもオブジェクトのリストでもありえます。
func parseMetadataBlocks(data []byte) ([]metadataBlock, error) {
	var many []metadataBlock
	if err := json.Unmarshal(data, &many); err == nil {
		return many, nil
	}

	var one metadataBlock
	if err := json.Unmarshal(data, &one); err == nil {
		return []metadataBlock{one}, nil
	}

	return nil, fmt.Errorf("構造化メタデータのパースに失敗しました")
}
