package s3

import "github.com/nimbusstore/gateway/pkg/config"

// ConfigFrom adapts the process-wide configuration's shark S3 section into the
// Config this package's constructors expect, keeping pkg/config free of any
// dependency on aws-sdk-go-v2.
func ConfigFrom(cfg config.SharkS3Config) Config {
	return Config{
		Endpoint:        cfg.Endpoint,
		Region:          cfg.Region,
		AccessKeyID:     cfg.AccessKeyID,
		SecretAccessKey: cfg.SecretAccessKey,
		ForcePathStyle:  cfg.ForcePathStyle,
		BucketPrefix:    cfg.BucketPrefix,
		KeyPrefix:       cfg.KeyPrefix,
		PartSize:        int64(cfg.PartSize),
	}
}
