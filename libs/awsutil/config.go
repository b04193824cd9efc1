package awsutil

import (
	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/tecnotop/backend/libs/errors"
)

// Config returns an AWS config using either the provided credentials or the
// environment depending on what's available.
func Config(region, accessKey, secretKey string) (*aws.Config, error) {
	var cred *credentials.Credentials
	if accessKey != "" && secretKey != "" {
		cred = credentials.NewStaticCredentials(accessKey, secretKey, "")
	} else {
		cred = credentials.NewEnvCredentials()
		if v, err := cred.Get(); err != nil || v.AccessKeyID == "" || v.SecretAccessKey == "" {
			return nil, errors.New("awsutil: no credentials provided and none found in the environment")
		}
	}
	if region == "" {
		return nil, errors.New("awsutil: region required")
	}
	return &aws.Config{
		Credentials: cred,
		Region:      aws.String(region),
	}, nil
}
