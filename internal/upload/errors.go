package upload

import "errors"

// Sentinel errors. Their text is what the Error panel shows.
var (
	ErrUnsupportedExtension = errors.New("対応しているのは .md と .markdown ファイルのみです")
	ErrFileTooLarge         = errors.New("ファイルサイズは 50MB 以下にしてください")
	ErrNoFile               = errors.New("先にファイルを選択してください")
	ErrNoDownload           = errors.New("ダウンロードリンクがありません。もう一度変換してください")
	ErrConversionFailed     = errors.New("変換に失敗しました。もう一度お試しください")
	ErrNetwork              = errors.New("ネットワークエラーです。接続を確認してください")
)
