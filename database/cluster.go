package database

import (
	"github.com/lex00/wetwire-aurora-go/pending"
	"github.com/lex00/wetwire-aurora-go/resources/rds"
	"github.com/lex00/wetwire-aurora-go/stack"
)

// addCluster declares the Aurora cluster. The admin role is always the only
// entry of the cluster's IAM role list.
func addCluster(s *stack.Stack, name, subnetGroup string, spec ClusterSpec, admin AdminRole) (string, error) {
	nodeName := name + SuffixCluster
	_, err := s.Add(nodeName, rds.Cluster{
		ClusterIdentifier: name,
		Engine:            spec.Engine,
		EngineMode:        EngineMode,
		EngineVersion:     spec.EngineVersion,
		DatabaseName:      spec.DatabaseName,
		MasterUsername:    spec.MasterUsername,
		MasterPassword:    spec.MasterPassword,
		Serverlessv2ScalingConfiguration: &rds.ScalingConfiguration{
			MinCapacity: spec.Scaling.Min,
			MaxCapacity: spec.Scaling.Max,
		},
		IAMRoles:                    []pending.String{admin.ARN},
		VpcSecurityGroupIDs:         spec.SecurityGroupIDs,
		DBSubnetGroupName:           pending.Of[string](subnetGroup, rds.AttrName),
		DBClusterParameterGroupName: spec.ClusterParameterGroupName,
		AvailabilityZones:           spec.AvailabilityZones,
		BackupRetentionPeriod:       spec.Backup.RetentionDays,
		PreferredMaintenanceWindow:  spec.Backup.MaintenanceWindow,
		FinalSnapshotIdentifier:     spec.Backup.FinalSnapshotIdentifier,
		SkipFinalSnapshot:           spec.Backup.SkipFinalSnapshot,
		CopyTagsToSnapshot:          true,
		Tags:                        withName(spec.Tags, spec.Description+" DB Instance"),
	}, stack.Parent(name))
	return nodeName, err
}
