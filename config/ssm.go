package config

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
)

// LoadSSMParameters reads every parameter below parameterPath from AWS Systems
// Manager Parameter Store and adds it to c. The last path segment, upper-cased
// with dashes turned into underscores, becomes the key. Values already present
// in c (from the environment) are never overwritten.
func LoadSSMParameters(ctx context.Context, c map[string]string, parameterPath string) (int, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return 0, fmt.Errorf("load aws config: %w", err)
	}
	return mergeSSMParameters(ctx, ssm.NewFromConfig(awsCfg), c, parameterPath)
}

func mergeSSMParameters(ctx context.Context, client ssm.GetParametersByPathAPIClient, c map[string]string, parameterPath string) (int, error) {
	paginator := ssm.NewGetParametersByPathPaginator(client, &ssm.GetParametersByPathInput{
		Path:           aws.String(parameterPath),
		Recursive:      aws.Bool(true),
		WithDecryption: aws.Bool(true),
	})

	merged := 0
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return merged, fmt.Errorf("get parameters by path %s: %w", parameterPath, err)
		}
		for _, p := range page.Parameters {
			key := parameterKey(aws.ToString(p.Name))
			if key == "" {
				continue
			}
			if existing, ok := c[key]; ok && existing != "" {
				continue
			}
			c[key] = aws.ToString(p.Value)
			merged++
		}
	}
	return merged, nil
}

func parameterKey(name string) string {
	base := path.Base(name)
	if base == "." || base == "/" {
		return ""
	}
	return strings.ToUpper(strings.ReplaceAll(base, "-", "_"))
}
