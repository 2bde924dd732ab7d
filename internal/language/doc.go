// Package language resolves the free-form language settings in the
// translator config ("ja", "jpn", "ko-KR", "Korean", "한국어") into a
// canonical ISO 639-1 code and the English display name used in prompts.
package language
