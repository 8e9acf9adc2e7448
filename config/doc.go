// Package config loads the hfjobs settings file.
//
// The file is YAML, read from the --config flag, else
// $HFJOBS_CONFIG, else ~/.config/hfjobs/config.yaml. A missing
// default file yields the defaults. Unknown fields are rejected.
// HF_ENDPOINT overrides the endpoint of the file.
//
//	endpoint: https://huggingface.co
//	flavor: cpu-basic
//	max_attempts: 0
//	log_format: "{timestamp} {data}"
package config
