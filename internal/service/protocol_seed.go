package service

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/virgo-whisper/backend/internal/model"
	"gopkg.in/yaml.v3"
	"k8s.io/klog/v2"
)

type protocolSeedFile struct {
	Protocols []*model.Protocol `yaml:"protocols"`
}

// LoadProtocolSeed 读取 YAML 流程清单，未写 sort_order 时按文件顺序编号
func LoadProtocolSeed(path string) ([]*model.Protocol, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read protocol seed: %w", err)
	}

	var seed protocolSeedFile
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("parse protocol seed %s: %w", path, err)
	}

	for i, protocol := range seed.Protocols {
		if protocol == nil || strings.TrimSpace(protocol.Name) == "" {
			return nil, fmt.Errorf("protocol seed %s: entry %d has no name", path, i)
		}
		if protocol.SortOrder == 0 {
			protocol.SortOrder = i + 1
		}
	}
	return seed.Protocols, nil
}

// Seed 仅在存储中没有任何流程时写入，返回写入条数；之后需要 Reload 才会生效
func (l *ProtocolLibrary) Seed(ctx context.Context, protocols []*model.Protocol) (int, error) {
	if l.repo == nil {
		return 0, ErrStoreNotConfigured
	}

	existing, err := l.repo.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("list protocols: %w", err)
	}
	if len(existing) > 0 {
		klog.Infof("存储中已有 %d 个流程，跳过导入", len(existing))
		return 0, nil
	}

	saved := 0
	for _, protocol := range protocols {
		if err := l.repo.Save(ctx, protocol); err != nil {
			return saved, fmt.Errorf("save protocol %q: %w", protocol.Name, err)
		}
		saved++
	}
	klog.Infof("流程导入完成: %d 个流程", saved)
	return saved, nil
}
